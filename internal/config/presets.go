package config

import "sort"

func preset(name string, mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	mutate(cfg)
	return cfg
}

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"soft": preset("soft", func(c *Config) {
		c.BrakeTilt.Strength = 5
		c.BrakeTilt.Lingering = 3
	}),
	"firm": preset("firm", func(c *Config) {
		c.BrakeTilt.Strength = 18
		c.BrakeTilt.Lingering = 1.5
		c.HoldTilt.Angle = 4
	}),
	"no-hold": preset("no-hold", func(c *Config) {
		// nothing a rider can produce exceeds this target
		c.HoldTilt.MinTarget = 1000
	}),
	"disabled": preset("disabled", func(c *Config) {
		c.BrakeTilt.Strength = 0
	}),
}

// GetPreset returns a copy of the named profile, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
