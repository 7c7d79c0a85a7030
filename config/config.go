// Package config provides configuration loading and access for the arena.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all arena configuration parameters.
type Config struct {
	Arena        ArenaConfig        `yaml:"arena"`
	Physics      PhysicsConfig      `yaml:"physics"`
	Registry     RegistryConfig     `yaml:"registry"`
	Robot        RobotConfig        `yaml:"robot"`
	VM           VMConfig           `yaml:"vm"`
	Bullet       BulletConfig       `yaml:"bullet"`
	Cogs         CogsConfig         `yaml:"cogs"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Random       RandomConfig       `yaml:"random"`
	Population   PopulationConfig   `yaml:"population"`
	HallOfFame   HallOfFameConfig   `yaml:"hall_of_fame"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Logging      LoggingConfig      `yaml:"logging"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ArenaConfig holds the square arena dimensions.
type ArenaConfig struct {
	Size   float64 `yaml:"size"`   // Side length in world units
	Border float64 `yaml:"border"` // Positions clamp to [border, size-border]
}

// PhysicsConfig holds body integration parameters.
type PhysicsConfig struct {
	Drag        float64 `yaml:"drag"`         // Linear velocity decay per tick
	RotDrag     float64 `yaml:"rot_drag"`     // Angular velocity decay per tick
	ForceScale  float64 `yaml:"force_scale"`  // forward force divisor
	RotateScale float64 `yaml:"rotate_scale"` // rotate force divisor
}

// RegistryConfig holds entity slot limits.
type RegistryConfig struct {
	Capacity  int `yaml:"capacity"`   // Total slots; ids are slot indices
	MaxRobots int `yaml:"max_robots"` // Per-kind cap
	MaxCogs   int `yaml:"max_cogs"`   // Per-kind cap
}

// RobotConfig holds robot creation parameters.
type RobotConfig struct {
	Size             float64 `yaml:"size"`
	DefaultStat      int     `yaml:"default_stat"`
	InitialHealth    float64 `yaml:"initial_health"`
	InitialCogs      float64 `yaml:"initial_cogs"`
	StarvationDamage float64 `yaml:"starvation_damage"` // Damage per tick while cogs <= 0
	ViewDistance     float64 `yaml:"view_distance"`     // Until a program sets its own
	Mass             float64 `yaml:"mass"`
}

// VMConfig holds interpreter energy accounting.
type VMConfig struct {
	StepTax      float64 `yaml:"step_tax"`      // Charged per executed instruction on top of its cost
	DeficitFloor float64 `yaml:"deficit_floor"` // A run halts once cogs drop below this
}

// BulletConfig holds projectile parameters.
type BulletConfig struct {
	Recharge    int     `yaml:"recharge"`     // Base cooldown in ticks, reduced by haste
	Size        float64 `yaml:"size"`
	TTL         int     `yaml:"ttl"`          // Ticks before a bullet expires
	SpeedScale  float64 `yaml:"speed_scale"`  // bullet-speed stat divisor
	DamageScale float64 `yaml:"damage_scale"` // damage stat divisor
	SpreadScale float64 `yaml:"spread_scale"` // bullet-spread stat divisor (radians)
}

// CogsConfig holds resource node parameters.
type CogsConfig struct {
	DistributeChance float64 `yaml:"distribute_chance"` // Per-tick spawn probability
	MinValue         int     `yaml:"min_value"`
	MaxValue         int     `yaml:"max_value"`
	Size             float64 `yaml:"size"`
}

// ReproductionConfig holds offspring placement.
type ReproductionConfig struct {
	OffsetFraction float64 `yaml:"offset_fraction"` // Max offset per axis as a fraction of arena size
}

// RandomConfig holds bounded random-search parameters.
type RandomConfig struct {
	ExistsProbes int `yaml:"exists_probes"` // Probes before a random-cell read gives up
}

// PopulationConfig holds seeding and respawn parameters.
type PopulationConfig struct {
	Initial          int `yaml:"initial"`           // Copies of each seed program at start
	RespawnThreshold int `yaml:"respawn_threshold"` // Reseed when robots drop below this
	RespawnCount     int `yaml:"respawn_count"`
	InitialCogs      int `yaml:"initial_cogs"` // Resource nodes placed at start
}

// HallOfFameConfig controls which dead robots are kept for reseeding.
type HallOfFameConfig struct {
	Size           int     `yaml:"size"`            // Entries kept, best first
	MinChildren    int     `yaml:"min_children"`    // Children needed to qualify
	MinFitness     float64 `yaml:"min_fitness"`     // Or fitness needed to qualify
	ChildrenWeight float64 `yaml:"children_weight"` // Fitness credit per child
	ReseedChance   float64 `yaml:"reseed_chance"`   // Probability a respawn draws from the hall
}

// TelemetryConfig holds stats window parameters.
type TelemetryConfig struct {
	WindowTicks  int `yaml:"window_ticks"`
	BookmarkSpan int `yaml:"bookmark_span"` // Windows of history for bookmark detection
}

// LoggingConfig holds log defaults; CLI flags override.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	MinPos    float64 // arena.border
	MaxPos    float64 // arena.size - arena.border
	MaxOffset float64 // arena.size * reproduction.offset_fraction
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Arena.Size <= 0:
		return fmt.Errorf("%w: arena.size must be positive", ErrInvalid)
	case c.Arena.Border < 0 || 2*c.Arena.Border >= c.Arena.Size:
		return fmt.Errorf("%w: arena.border %v does not fit arena.size %v", ErrInvalid, c.Arena.Border, c.Arena.Size)
	case c.VM.StepTax <= 0 || math.IsNaN(c.VM.StepTax):
		// Every executed instruction must cost something or a branch loop never halts.
		return fmt.Errorf("%w: vm.step_tax must be positive", ErrInvalid)
	case c.Registry.Capacity <= 0 || c.Registry.Capacity > 1<<16:
		return fmt.Errorf("%w: registry.capacity must be in (0, 65536]", ErrInvalid)
	case c.Registry.MaxRobots > c.Registry.Capacity || c.Registry.MaxCogs > c.Registry.Capacity:
		return fmt.Errorf("%w: per-kind caps exceed registry.capacity", ErrInvalid)
	case c.Cogs.MinValue > c.Cogs.MaxValue:
		return fmt.Errorf("%w: cogs.min_value exceeds cogs.max_value", ErrInvalid)
	case c.Random.ExistsProbes <= 0:
		return fmt.Errorf("%w: random.exists_probes must be positive", ErrInvalid)
	case c.HallOfFame.ReseedChance < 0 || c.HallOfFame.ReseedChance > 1:
		return fmt.Errorf("%w: hall_of_fame.reseed_chance must be in [0, 1]", ErrInvalid)
	case c.Telemetry.WindowTicks <= 0:
		return fmt.Errorf("%w: telemetry.window_ticks must be positive", ErrInvalid)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.MinPos = c.Arena.Border
	c.Derived.MaxPos = c.Arena.Size - c.Arena.Border
	c.Derived.MaxOffset = c.Arena.Size * c.Reproduction.OffsetFraction
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
