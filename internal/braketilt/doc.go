// Package braketilt computes the brake-tilt setpoint offset for a
// self-balancing single-wheel vehicle.
//
// A [Controller] is stepped once per balance-loop tick. While the motor is
// actively braking on level ground it lifts the balance setpoint in
// proportion to the balance offset, and it smooths that lift with a
// speed-dependent rate limiter. If the pitch drops sharply while brake-tilt
// is active, the controller engages hold-tilt and pins the setpoint at a
// fixed angle for a bounded number of ticks.
//
// # Usage
//
//	bt := braketilt.New()
//	bt.Configure(cfg.BrakeTiltStrength)
//	// every tick:
//	bt.Update(tick, cfg)
//	offset := bt.Setpoint()
//	// on dismount, instead of Update:
//	bt.WindDown()
//
// The controller performs only arithmetic: it never blocks, allocates or
// locks. It must be owned by the goroutine running the loop, and Configure
// must only be called between ticks.
package braketilt
