package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// PlotSeries renders one named time series as an ASCII chart.
func PlotSeries(name string, data []float64) string {
	if len(data) < 2 {
		return fmt.Sprintf("%s: not enough samples", name)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(name),
	)
}

// PlotStates renders every state component of a run, one chart per
// component, labeled by the body kind where the layout is known.
func PlotStates(body string, states [][]float64) string {
	if len(states) == 0 {
		return "no data to plot"
	}

	var b strings.Builder
	for idx := range states[0] {
		data := make([]float64, len(states))
		for i, s := range states {
			if idx < len(s) {
				data[i] = s[idx]
			}
		}
		b.WriteString(PlotSeries(componentName(body, idx), data))
		b.WriteString("\n\n")
	}
	return b.String()
}

func componentName(body string, idx int) string {
	switch body {
	case "pendulum":
		switch idx {
		case 0:
			return "theta (angle)"
		case 1:
			return "omega (angular velocity)"
		}
	case "drone":
		switch idx {
		case 0:
			return "x (position)"
		case 1:
			return "y (altitude)"
		case 2:
			return "vx"
		case 3:
			return "vy"
		case 4:
			return "theta (tilt)"
		case 5:
			return "omega (angular velocity)"
		}
	}
	return fmt.Sprintf("x%d vs time", idx)
}
