package scenario

import (
	"fmt"
	"sort"
)

var builtins = map[string]Scenario{
	"cruise": {
		Name:        "cruise",
		Description: "steady riding, no braking",
		Segments: []Segment{
			{Label: "cruise", Duration: 3, Erpm: Const(5000), BalanceOffset: Const(1)},
		},
	},
	"level-stop": {
		Name:        "level-stop",
		Description: "hard stop on flat ground",
		Segments: []Segment{
			{Label: "cruise", Duration: 1, Erpm: Const(6000), BalanceOffset: Const(1)},
			{Label: "brake", Duration: 2, Erpm: Ramp(6000, 1500), Braking: true,
				BalanceOffset: Const(-4), Pitch: Ramp(0, 1), BalancePitch: Ramp(0, 1)},
			{Label: "roll out", Duration: 1, Erpm: Ramp(1500, 0), BalanceOffset: Ramp(-1, 0),
				Pitch: Ramp(1, 0), BalancePitch: Ramp(1, 0)},
		},
	},
	"downhill-stop": {
		Name:        "downhill-stop",
		Description: "stop on a gentle downhill, lift is damped",
		Segments: []Segment{
			{Label: "descend", Duration: 1, Erpm: Const(6000), AccelDiff: Const(-1.5), BalanceOffset: Const(-1)},
			{Label: "brake", Duration: 2, Erpm: Ramp(6000, 1500), Braking: true,
				BalanceOffset: Const(-4), AccelDiff: Const(-1.5)},
			{Label: "roll out", Duration: 1, Erpm: Ramp(1500, 0), AccelDiff: Const(-1.5)},
		},
	},
	"steep-downhill": {
		Name:        "steep-downhill",
		Description: "braking down a steep slope, brake-tilt stays off",
		Segments: []Segment{
			{Label: "brake", Duration: 2, Erpm: Ramp(6000, 2500), Braking: true,
				BalanceOffset: Const(-5), AccelDiff: Const(-3)},
		},
	},
	"nose-dip": {
		Name:        "nose-dip",
		Description: "sudden pitch drop while braking engages hold-tilt",
		Segments: []Segment{
			{Label: "brake", Duration: 1, Erpm: Ramp(7000, 4500), Braking: true,
				BalanceOffset: Const(-6)},
			{Label: "dip", Duration: 0.1, Erpm: Ramp(4500, 4300), Braking: true,
				BalanceOffset: Const(-6), Pitch: Ramp(0, -4), BalancePitch: Ramp(0, -2)},
			{Label: "recover", Duration: 1, Erpm: Ramp(4300, 2500), Braking: true,
				BalanceOffset: Const(-6), Pitch: Ramp(-4, 0), BalancePitch: Ramp(-2, 0)},
			{Label: "roll out", Duration: 1, Erpm: Ramp(2500, 0)},
		},
	},
	"wheelslip": {
		Name:        "wheelslip",
		Description: "traction lost mid-stop",
		Segments: []Segment{
			{Label: "brake", Duration: 1, Erpm: Ramp(6000, 4500), Braking: true, BalanceOffset: Const(-4)},
			{Label: "slip", Duration: 0.3, Erpm: Ramp(4500, 4400), Braking: true, BalanceOffset: Const(-4), Wheelslip: true},
			{Label: "brake", Duration: 1, Erpm: Ramp(4400, 2500), Braking: true, BalanceOffset: Const(-4)},
		},
	},
	"dismount": {
		Name:        "dismount",
		Description: "brake then step off, brake-tilt fades out",
		Segments: []Segment{
			{Label: "brake", Duration: 1.5, Erpm: Ramp(6000, 2500), Braking: true, BalanceOffset: Const(-5)},
			{Label: "dismount", Duration: 2, Erpm: Ramp(2500, 0), Dismount: true},
		},
	},
	"reverse-stop": {
		Name:        "reverse-stop",
		Description: "hard stop while riding backwards",
		Segments: []Segment{
			{Label: "reverse", Duration: 1, Erpm: Const(-5000), BalanceOffset: Const(-1)},
			{Label: "brake", Duration: 2, Erpm: Ramp(-5000, -1500), Braking: true, BalanceOffset: Const(4)},
			{Label: "roll out", Duration: 1, Erpm: Ramp(-1500, 0)},
		},
	},
}

// Builtin returns a copy of a built-in scenario.
func Builtin(name string) (*Scenario, error) {
	scn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	scn.Segments = append([]Segment(nil), scn.Segments...)
	return &scn, nil
}

func List() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
