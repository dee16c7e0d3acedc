package sim

import (
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/integrators"
	"github.com/san-kum/hybridsim/internal/models"
)

// nanSystem fails every solve, for exercising the fault path.
type nanSystem struct{}

func (nanSystem) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{math.NaN()}
}

func (nanSystem) StateDim() int   { return 1 }
func (nanSystem) ControlDim() int { return 0 }

type countingObserver struct {
	mu    sync.Mutex
	ticks int
	last  dynamo.State
}

func (o *countingObserver) OnTick(body string, x dynamo.State, u dynamo.Control, t float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ticks++
	o.last = x
}

var _ = Describe("Controller", func() {
	var ctrl *Controller

	BeforeEach(func() {
		ctrl = NewController(zerolog.Nop())
	})

	newPendulum := func(name string, theta, omega float64) *Body {
		p, err := models.NewPendulum(models.DefaultGravity)
		Expect(err).NotTo(HaveOccurred())
		torque, err := NewActuator("torque", models.TorqueMin, models.TorqueMax)
		Expect(err).NotTo(HaveOccurred())
		b, err := NewBody(name, p, integrators.NewRK4(), dynamo.State{theta, omega}, models.PendulumHorizon, 0.001, torque)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctrl.Register(b)).To(Succeed())
		return b
	}

	newDrone := func(name string) *Body {
		d, err := models.NewDrone(1.0, 0.1, 0.25, models.DefaultGravity)
		Expect(err).NotTo(HaveOccurred())
		left, err := NewActuator("left", models.ThrustMin, models.ThrustMax)
		Expect(err).NotTo(HaveOccurred())
		right, err := NewActuator("right", models.ThrustMin, models.ThrustMax)
		Expect(err).NotTo(HaveOccurred())
		b, err := NewBody(name, d, integrators.NewRK4(), dynamo.State{0, 5, 0, 0, 0, 0}, models.DroneHorizon, 0.001, left, right)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctrl.Register(b)).To(Succeed())
		return b
	}

	Describe("pendulum at the hanging equilibrium", func() {
		It("stays put under zero torque", func() {
			newPendulum("pendulum", -math.Pi/2, 0)

			Expect(ctrl.Tick("pendulum", 1.0)).To(Succeed())

			x, err := ctrl.Observe("pendulum")
			Expect(err).NotTo(HaveOccurred())
			Expect(x[0]).To(BeNumerically("~", -math.Pi/2, 1e-10))
			Expect(x[1]).To(BeNumerically("~", 0, 1e-10))
		})

		It("exposes the (cos θ, sin θ, ω) projection", func() {
			newPendulum("pendulum", -math.Pi/2, 0)

			obs, err := ctrl.Project("pendulum")
			Expect(err).NotTo(HaveOccurred())
			Expect(obs).To(HaveLen(3))
			Expect(obs[0]).To(BeNumerically("~", 0, 1e-12))
			Expect(obs[1]).To(BeNumerically("~", -1, 1e-12))
		})
	})

	Describe("actuator commands", func() {
		It("clamps out-of-range torque without failing", func() {
			b := newPendulum("pendulum", -math.Pi/2, 0)

			Expect(ctrl.Receive("pendulum", 0, 5.0)).To(Succeed())
			torque, err := b.Actuator(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(torque.Current()).To(Equal(2.0))
			Expect(torque.Desired()).To(Equal(5.0))

			Expect(ctrl.Receive("pendulum", 0, -5.0)).To(Succeed())
			Expect(torque.Current()).To(Equal(-2.0))
		})

		It("keeps only the latest clamped value per actuator", func() {
			b := newPendulum("pendulum", -math.Pi/2, 0)

			Expect(ctrl.Receive("pendulum", 0, 1.0)).To(Succeed())
			Expect(ctrl.Receive("pendulum", 0, -1.5)).To(Succeed())

			torque, _ := b.Actuator(0)
			Expect(torque.Current()).To(Equal(-1.5))
		})

		It("rejects unknown bodies and actuators", func() {
			newPendulum("pendulum", 0, 0)

			Expect(ctrl.Receive("ghost", 0, 1.0)).To(MatchError(ErrUnknownBody))
			Expect(ctrl.Receive("pendulum", 7, 1.0)).To(MatchError(ErrUnknownActuator))
		})
	})

	Describe("segment staleness", func() {
		It("keeps the segment fresh until the horizon is exhausted", func() {
			b := newPendulum("pendulum", 0.3, 0)

			Expect(ctrl.Tick("pendulum", 1.0)).To(Succeed())
			seg := b.segment

			// Nine more unit ticks consume the rest of the 10.0 horizon
			// without a recompute.
			for i := 0; i < 9; i++ {
				Expect(ctrl.Tick("pendulum", 1.0)).To(Succeed())
				Expect(b.segment).To(BeIdenticalTo(seg))
			}
			Expect(b.segment.Elapsed()).To(Equal(10.0))

			// The next tick necessarily recomputes.
			Expect(ctrl.Tick("pendulum", 1.0)).To(Succeed())
			Expect(b.segment).NotTo(BeIdenticalTo(seg))
			Expect(b.segment.Elapsed()).To(Equal(1.0))
			Expect(b.segment.Horizon()).To(Equal(models.PendulumHorizon))
		})

		It("replaces the segment when a single oversized tick exhausts it", func() {
			b := newPendulum("pendulum", 0.3, 0)

			Expect(ctrl.Tick("pendulum", 1.0)).To(Succeed())
			seg := b.segment
			before := b.Observe()

			err := ctrl.Tick("pendulum", 11.0)
			var domainErr *dynamo.DomainError
			Expect(err).To(BeAssignableToTypeOf(domainErr))
			Expect(b.segment).NotTo(BeIdenticalTo(seg))
			// The refused advance leaves the state untouched.
			Expect(b.Observe()).To(Equal(before))
		})

		It("invalidates immediately when a command arrives between ticks", func() {
			b := newPendulum("pendulum", -math.Pi/2, 0)

			Expect(ctrl.Tick("pendulum", 0.5)).To(Succeed())
			seg := b.segment

			Expect(ctrl.Receive("pendulum", 0, 1.0)).To(Succeed())
			Expect(ctrl.Tick("pendulum", 0.5)).To(Succeed())

			Expect(b.segment).NotTo(BeIdenticalTo(seg))
			Expect(b.segment.Elapsed()).To(Equal(0.5))
		})
	})

	Describe("two-engine drone", func() {
		It("climbs under full symmetric thrust", func() {
			newDrone("drone")

			Expect(ctrl.Receive("drone", 0, 10.0)).To(Succeed())
			Expect(ctrl.Receive("drone", 1, 10.0)).To(Succeed())
			Expect(ctrl.Tick("drone", 1.0)).To(Succeed())

			x, err := ctrl.Observe("drone")
			Expect(err).NotTo(HaveOccurred())
			Expect(x[3]).To(BeNumerically(">", 0), "vertical velocity")
		})

		It("holds zero net torque under equal thrust at all times", func() {
			newDrone("drone")

			Expect(ctrl.Receive("drone", 0, 6.0)).To(Succeed())
			Expect(ctrl.Receive("drone", 1, 6.0)).To(Succeed())

			for i := 0; i < 8; i++ {
				Expect(ctrl.Tick("drone", 0.5)).To(Succeed())
				x, err := ctrl.Observe("drone")
				Expect(err).NotTo(HaveOccurred())
				Expect(x[4]).To(BeNumerically("~", 0, 1e-12), "orientation")
				Expect(x[5]).To(BeNumerically("~", 0, 1e-12), "angular velocity")
			}
		})

		It("invalidates the shared segment when only one engine changes", func() {
			b := newDrone("drone")

			Expect(ctrl.Tick("drone", 0.5)).To(Succeed())
			seg := b.segment

			// Only the left engine is commanded; the recompute still
			// uses both engines' current values.
			Expect(ctrl.Receive("drone", 0, 10.0)).To(Succeed())
			Expect(ctrl.Tick("drone", 0.5)).To(Succeed())

			Expect(b.segment).NotTo(BeIdenticalTo(seg))

			x, err := ctrl.Observe("drone")
			Expect(err).NotTo(HaveOccurred())
			Expect(x[5]).To(BeNumerically(">", 0), "left-heavy thrust should spin positive")
		})
	})

	Describe("solve failures", func() {
		It("retains the last good state and faults after repeated failures", func() {
			b, err := NewBody("broken", nanSystem{}, integrators.NewEuler(), dynamo.State{1}, 10.0, 0.01)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.Register(b)).To(Succeed())

			// The first failures degrade gracefully: state held, horizon halved.
			Expect(ctrl.Tick("broken", 0.1)).To(Succeed())
			Expect(ctrl.Tick("broken", 0.1)).To(Succeed())
			Expect(b.Observe()).To(Equal(dynamo.State{1}))
			Expect(b.nextHorizon).To(Equal(2.5))

			err = ctrl.Tick("broken", 0.1)
			var fault *dynamo.SimulationFault
			Expect(err).To(BeAssignableToTypeOf(fault))
			Expect(err).To(MatchError(dynamo.ErrSolveDiverged))
			Expect(b.Observe()).To(Equal(dynamo.State{1}))
		})
	})

	Describe("registration", func() {
		It("rejects duplicate body names", func() {
			newPendulum("pendulum", 0, 0)

			p, err := models.NewPendulum(models.DefaultGravity)
			Expect(err).NotTo(HaveOccurred())
			torque, err := NewActuator("torque", models.TorqueMin, models.TorqueMax)
			Expect(err).NotTo(HaveOccurred())
			dup, err := NewBody("pendulum", p, integrators.NewRK4(), dynamo.State{0, 0}, models.PendulumHorizon, 0.001, torque)
			Expect(err).NotTo(HaveOccurred())

			Expect(ctrl.Register(dup)).To(MatchError(ErrDuplicateBody))
		})
	})

	Describe("concurrent access", func() {
		It("serializes ticks and commands per body", func() {
			newPendulum("pendulum", 0.3, 0)
			b := func() *Body { b, _ := ctrl.Body("pendulum"); return b }()

			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func(v float64) {
					defer wg.Done()
					for j := 0; j < 50; j++ {
						Expect(ctrl.Receive("pendulum", 0, v)).To(Succeed())
					}
				}(float64(i) - 5.0)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					Expect(ctrl.Tick("pendulum", 0.01)).To(Succeed())
				}
			}()
			wg.Wait()

			torque, err := b.Actuator(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(torque.Current()).To(BeNumerically(">=", models.TorqueMin))
			Expect(torque.Current()).To(BeNumerically("<=", models.TorqueMax))
		})

		It("advances independent bodies together", func() {
			newPendulum("pendulum", 0.3, 0)
			newDrone("drone")

			obs := &countingObserver{}
			ctrl.AddObserver(obs)

			Expect(ctrl.TickAll(0.5)).To(Succeed())
			Expect(obs.ticks).To(Equal(2))
		})

		It("still notifies healthy bodies when another body faults", func() {
			newPendulum("pendulum", 0.3, 0)

			broken, err := NewBody("broken", nanSystem{}, integrators.NewEuler(), dynamo.State{1}, 10.0, 0.01)
			Expect(err).NotTo(HaveOccurred())
			broken.SetMaxSolveFailures(1)
			Expect(ctrl.Register(broken)).To(Succeed())

			obs := &countingObserver{}
			ctrl.AddObserver(obs)

			err = ctrl.TickAll(0.5)
			Expect(err).To(MatchError(dynamo.ErrSolveDiverged))
			Expect(err.Error()).To(ContainSubstring(`body "broken"`))
			Expect(obs.ticks).To(Equal(1))
			Expect(obs.last).To(HaveLen(2), "pendulum state was the one observed")
		})
	})

	Describe("message routing", func() {
		It("routes the closed set of envelopes", func() {
			newPendulum("pendulum", -math.Pi/2, 0)

			_, err := ctrl.Dispatch(Envelope{From: RoleAgent, To: RoleActuator, Kind: PayloadCommand, Body: "pendulum", Value: 5.0})
			Expect(err).NotTo(HaveOccurred())

			_, err = ctrl.Dispatch(Envelope{From: RoleController, To: RoleBody, Kind: PayloadTick, Body: "pendulum", Dt: 0.5})
			Expect(err).NotTo(HaveOccurred())

			x, err := ctrl.Dispatch(Envelope{From: RoleAgent, To: RoleBody, Kind: PayloadObserve, Body: "pendulum"})
			Expect(err).NotTo(HaveOccurred())
			Expect(x).To(HaveLen(2))
		})

		It("rejects routings outside the enumerated set", func() {
			newPendulum("pendulum", 0, 0)

			_, err := ctrl.Dispatch(Envelope{From: RoleBody, To: RoleAgent, Kind: PayloadCommand, Body: "pendulum"})
			Expect(err).To(MatchError(ErrBadRoute))

			_, err = ctrl.Dispatch(Envelope{From: RoleAgent, To: RoleActuator, Kind: PayloadTick, Body: "pendulum"})
			Expect(err).To(MatchError(ErrBadRoute))
		})
	})
})
