// Package storage persists simulation runs to SQLite through GORM.
package storage

import (
	"encoding/json"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Run is one recorded simulation session.
type Run struct {
	ID         uint `gorm:"primarykey"`
	CreatedAt  time.Time
	Body       string
	Integrator string
	Dt         float64
	Duration   float64
}

// Step is one extracted state along a run. State and Control hold the
// JSON-encoded vectors; dimensions differ per body kind.
type Step struct {
	ID      uint `gorm:"primarykey"`
	RunID   uint `gorm:"index"`
	T       float64
	State   string
	Control string
}

type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite file at path, creating it and the schema
// if needed. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Run{}, &Step{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) BeginRun(body, integrator string, dt, duration float64) (*Run, error) {
	run := &Run{Body: body, Integrator: integrator, Dt: dt, Duration: duration}
	if err := s.db.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) AppendStep(runID uint, t float64, x dynamo.State, u dynamo.Control) error {
	xs, err := json.Marshal([]float64(x))
	if err != nil {
		return err
	}
	us, err := json.Marshal([]float64(u))
	if err != nil {
		return err
	}
	return s.db.Create(&Step{RunID: runID, T: t, State: string(xs), Control: string(us)}).Error
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	if err := s.db.Order("id desc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) RunByID(id uint) (*Run, error) {
	var run Run
	if err := s.db.First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// StepsFor returns a run's steps in time order.
func (s *Store) StepsFor(runID uint) ([]Step, error) {
	var steps []Step
	if err := s.db.Where("run_id = ?", runID).Order("id").Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Decode unpacks the JSON vectors of a step.
func (st *Step) Decode() (dynamo.State, dynamo.Control, error) {
	var x []float64
	if err := json.Unmarshal([]byte(st.State), &x); err != nil {
		return nil, nil, err
	}
	var u []float64
	if err := json.Unmarshal([]byte(st.Control), &u); err != nil {
		return nil, nil, err
	}
	return dynamo.State(x), dynamo.Control(u), nil
}

// Recorder streams observed ticks into a run. The observer interface
// has no error channel, so the first write failure is latched and
// subsequent ticks are dropped; check Err after the run.
type Recorder struct {
	store *Store
	run   *Run
	err   error
}

func NewRecorder(store *Store, run *Run) *Recorder {
	return &Recorder{store: store, run: run}
}

func (r *Recorder) OnTick(body string, x dynamo.State, u dynamo.Control, t float64) {
	if r.err != nil {
		return
	}
	r.err = r.store.AppendStep(r.run.ID, t, x, u)
}

func (r *Recorder) Err() error { return r.err }
