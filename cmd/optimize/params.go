package main

import (
	"github.com/pthm-cable/arena/config"
)

// ParamSpec is one tunable config value and the box it is searched in.
type ParamSpec struct {
	Name    string
	Path    string // dotted config key, for logs
	Min     float64
	Max     float64
	Default float64

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector maps between config values and the unit cube CMA-ES works in.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector returns the economy and combat knobs that decide whether
// an arena stays populated. The per-step tax is a fixed rule, not a knob.
func NewParamVector() *ParamVector {
	return &ParamVector{Specs: []ParamSpec{
		{
			Name: "distribute_chance", Path: "cogs.distribute_chance", Min: 0.05, Max: 0.75, Default: 0.25,
			get: func(c *config.Config) float64 { return c.Cogs.DistributeChance },
			set: func(c *config.Config, v float64) { c.Cogs.DistributeChance = v },
		},
		{
			Name: "cog_max_value", Path: "cogs.max_value", Min: 30, Max: 150, Default: 60,
			get: func(c *config.Config) float64 { return float64(c.Cogs.MaxValue) },
			set: func(c *config.Config, v float64) { c.Cogs.MaxValue = max(int(v), c.Cogs.MinValue) },
		},
		{
			Name: "initial_cogs", Path: "robot.initial_cogs", Min: 100, Max: 1000, Default: 400,
			get: func(c *config.Config) float64 { return c.Robot.InitialCogs },
			set: func(c *config.Config, v float64) { c.Robot.InitialCogs = v },
		},
		{
			Name: "bullet_recharge", Path: "bullet.recharge", Min: 10, Max: 80, Default: 40,
			get: func(c *config.Config) float64 { return float64(c.Bullet.Recharge) },
			set: func(c *config.Config, v float64) { c.Bullet.Recharge = int(v) },
		},
	}}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int { return len(pv.Specs) }

// DefaultVector returns every parameter's default.
func (pv *ParamVector) DefaultVector() []float64 {
	return pv.each(nil, func(s ParamSpec, _ float64) float64 { return s.Default })
}

// Normalize maps raw values into [0,1] per parameter.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	return pv.each(raw, func(s ParamSpec, v float64) float64 { return (v - s.Min) / (s.Max - s.Min) })
}

// Denormalize is the inverse of Normalize. The result may lie outside the box.
func (pv *ParamVector) Denormalize(unit []float64) []float64 {
	return pv.each(unit, func(s ParamSpec, v float64) float64 { return s.Min + v*(s.Max-s.Min) })
}

// Clamp pulls each value into its box.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	return pv.each(v, func(s ParamSpec, x float64) float64 { return min(max(x, s.Min), s.Max) })
}

// ApplyToConfig writes clamped values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
}

// ExtractFromConfig reads the current value of every parameter.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return pv.each(nil, func(s ParamSpec, _ float64) float64 { return s.get(cfg) })
}

func (pv *ParamVector) each(in []float64, fn func(ParamSpec, float64) float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		var v float64
		if in != nil {
			v = in[i]
		}
		out[i] = fn(s, v)
	}
	return out
}
