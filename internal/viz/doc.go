// Package viz renders a ride in the terminal while it runs.
//
// [Model] is a Bubble Tea program model that advances a [ride.Ride] on a
// frame timer, draws the board side on with its current setpoint tilt and
// charts the setpoint against the brake-tilt target.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart the scenario
//	Tab   - Select the next profile parameter
//	Up/K  - Increase the selected parameter (+5%)
//	Down/J- Decrease the selected parameter (-5%)
//	T     - Cycle color themes
//	Q     - Quit
package viz
