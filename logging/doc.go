// Package logging provides a minimal logging interface and adapters for streamflow.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the engine, coordinator and sessions use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - PlanLogger with contextual helpers for plan and peer correlation
//
// Usage:
//
//	logger := logging.NewPlanLogger(nil).WithComponent("engine")
//	eng, err := engine.Create(reg, planID, "bootstrap", coord, engine.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
