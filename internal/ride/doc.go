// Package ride drives a brake-tilt controller through a scripted ride.
//
// A [Ride] turns a [scenario.Scenario] into per-tick motor, incline and IMU
// snapshots at the profile's loop rate and steps the controller with them.
// [Simulator] runs a whole ride, feeding each [Sample] to registered
// metrics and observers:
//
//	sim := ride.New(cfg)
//	sim.AddMetric(metrics.NewPeakSetpoint())
//	result, err := sim.Run(ctx, scn)
//
// # Thread Safety
//
// A Ride owns its controller and is NOT thread-safe. For running several
// scenarios at once use [Ensemble], which gives every run its own
// controller and metrics.
package ride
