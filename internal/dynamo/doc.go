// Package dynamo provides the core vocabulary for hybrid
// continuous/discrete simulation:
//
//   - [State], [Control]: float64 vectors for body state and actuator values
//   - [System]: the ODE derivative interface (dX/dt = f(X, u, t))
//   - [Integrator], [AdaptiveIntegrator]: numerical stepping contracts
//   - [DomainError], [SimulationFault]: the error taxonomy shared by
//     the trajectory cache and the tick controller
//
// A System must be deterministic and side-effect-free: the trajectory
// solver assumes that re-deriving at the same (x, u, t) yields the
// same vector.
package dynamo
