package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-skinning/common"
	"github.com/Carmen-Shannon/oxy-skinning/engine/light"
	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/scene"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"
)

var (
	// ErrUnsupportedFormat is returned by Load for file extensions other than .yaml, .yml and .toml.
	ErrUnsupportedFormat = errors.New("config: unsupported format")

	// ErrInvalid wraps every problem reported by Validate.
	ErrInvalid = errors.New("config: invalid")
)

// MaxWorkers bounds the scene worker pool.
const MaxWorkers = 256

// Format is a config file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Config holds animation, scene, light and logging settings.
type Config struct {
	Animation AnimationConfig `yaml:"animation" toml:"animation"`
	Scene     SceneConfig     `yaml:"scene" toml:"scene"`
	Light     LightConfig     `yaml:"light" toml:"light"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// AnimationConfig selects evaluator behavior and playback.
type AnimationConfig struct {
	// TicksPerSecond applies to clips that do not declare a tick rate.
	TicksPerSecond       float64 `yaml:"ticks_per_second" toml:"ticks_per_second"`
	RotationMode         string  `yaml:"rotation_mode" toml:"rotation_mode"`
	TimePolicy           string  `yaml:"time_policy" toml:"time_policy"`
	MalformedTrackPolicy string  `yaml:"malformed_track_policy" toml:"malformed_track_policy"`
	Loop                 bool    `yaml:"loop" toml:"loop"`
	Speed                float32 `yaml:"speed" toml:"speed"`
}

// SceneConfig sizes the scene's worker pool and shadow map.
type SceneConfig struct {
	Workers             int     `yaml:"workers" toml:"workers"`
	ShadowMapResolution int     `yaml:"shadow_map_resolution" toml:"shadow_map_resolution"`
	ShadowBias          float32 `yaml:"shadow_bias" toml:"shadow_bias"`
}

// LightConfig describes the scene's point light. Empty Position and Color keep the light defaults.
type LightConfig struct {
	Position            []float32 `yaml:"position" toml:"position"`
	Color               []float32 `yaml:"color" toml:"color"`
	AttenuationDistance float32   `yaml:"attenuation_distance" toml:"attenuation_distance"`
	Rotating            bool      `yaml:"rotating" toml:"rotating"`
	AngularSpeed        float32   `yaml:"angular_speed" toml:"angular_speed"`
}

// LoggingConfig sets the slog level: debug, info, warn or error.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	RotationMode         string
	TimePolicy           string
	MalformedTrackPolicy string
	TicksPerSecond       float64
	Workers              int
	LogLevel             string
}

// Load reads a config file, picking the decoder from its extension.
// Unknown keys are rejected. Fields not set in the file keep their zero values.
//
// Parameters:
//   - path: a .yaml, .yml or .toml file
//
// Returns:
//   - Config: the decoded config
//   - error: ErrUnsupportedFormat, or a read or decode error
func Load(path string) (Config, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".toml":
		format = FormatTOML
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config data in the given format.
//
// Parameters:
//   - data: the encoded config
//   - format: FormatYAML or FormatTOML
//
// Returns:
//   - Config: the decoded config
//   - error: ErrUnsupportedFormat or a decode error
func Parse(data []byte, format Format) (Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// A document without content decodes to io.EOF.
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return cfg, nil
}

// Resolve applies CLI flags over file values and fills the remaining zero fields with defaults.
//
// Parameters:
//   - flags: non-zero flag values take priority
func (c *Config) Resolve(flags Flags) {
	c.Animation.RotationMode = common.Coalesce(flags.RotationMode, c.Animation.RotationMode, "slerp")
	c.Animation.TimePolicy = common.Coalesce(flags.TimePolicy, c.Animation.TimePolicy, "clamp")
	c.Animation.MalformedTrackPolicy = common.Coalesce(flags.MalformedTrackPolicy, c.Animation.MalformedTrackPolicy, "fail")
	c.Animation.TicksPerSecond = common.Coalesce(flags.TicksPerSecond, c.Animation.TicksPerSecond, model.DefaultTicksPerSecond)
	c.Animation.Speed = common.Coalesce(c.Animation.Speed, 1)

	c.Scene.Workers = common.Clamp(common.Coalesce(flags.Workers, c.Scene.Workers, runtime.NumCPU()), 1, MaxWorkers)
	c.Scene.ShadowMapResolution = common.Coalesce(c.Scene.ShadowMapResolution, light.ShadowMapResolution)
	c.Scene.ShadowBias = common.Coalesce(c.Scene.ShadowBias, light.DefaultShadowBias)

	c.Logging.Level = common.Coalesce(flags.LogLevel, c.Logging.Level, "info")
}

// Validate reports every unknown enum string and malformed value.
//
// Returns:
//   - error: nil, or the joined problems each wrapping ErrInvalid
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if _, ok := skeleton.ParseRotationMode(c.Animation.RotationMode); !ok {
		invalid("animation.rotation_mode %q (want slerp or hold)", c.Animation.RotationMode)
	}
	if _, ok := skeleton.ParseTimePolicy(c.Animation.TimePolicy); !ok {
		invalid("animation.time_policy %q (want clamp or wrap-first)", c.Animation.TimePolicy)
	}
	if _, ok := skeleton.ParseMalformedTrackPolicy(c.Animation.MalformedTrackPolicy); !ok {
		invalid("animation.malformed_track_policy %q (want fail or bind-pose)", c.Animation.MalformedTrackPolicy)
	}
	if c.Animation.TicksPerSecond < 0 {
		invalid("animation.ticks_per_second %v is negative", c.Animation.TicksPerSecond)
	}
	if c.Animation.Speed < 0 {
		invalid("animation.speed %v is negative", c.Animation.Speed)
	}
	if c.Scene.ShadowMapResolution < 0 {
		invalid("scene.shadow_map_resolution %d is negative", c.Scene.ShadowMapResolution)
	}
	if n := len(c.Light.Position); n != 0 && n != 3 {
		invalid("light.position has %d components, want 3", n)
	}
	if n := len(c.Light.Color); n != 0 && n != 4 {
		invalid("light.color has %d components, want 4", n)
	}
	if c.Light.AttenuationDistance < 0 {
		invalid("light.attenuation_distance %v is negative", c.Light.AttenuationDistance)
	}
	if _, ok := parseLevel(c.Logging.Level); !ok {
		invalid("logging.level %q", c.Logging.Level)
	}

	return errors.Join(errs...)
}

// LogLevel returns the configured slog level, slog.LevelInfo when unset or unknown.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Logging.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	if s == "" {
		return slog.LevelInfo, true
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// EvaluatorOptions converts the animation section into evaluator options.
// Unknown strings fall back to the defaults; call Validate first to reject them.
//
// Parameters:
//   - logger: the logger for track diagnostics, may be nil
//
// Returns:
//   - []skeleton.EvaluatorBuilderOption: the options
func (c *Config) EvaluatorOptions(logger *slog.Logger) []skeleton.EvaluatorBuilderOption {
	rotation, _ := skeleton.ParseRotationMode(c.Animation.RotationMode)
	timePolicy, _ := skeleton.ParseTimePolicy(c.Animation.TimePolicy)
	malformed, _ := skeleton.ParseMalformedTrackPolicy(c.Animation.MalformedTrackPolicy)

	return []skeleton.EvaluatorBuilderOption{
		skeleton.WithRotationMode(rotation),
		skeleton.WithTimePolicy(timePolicy),
		skeleton.WithMalformedTrackPolicy(malformed),
		skeleton.WithLogger(logger),
	}
}

// LightOptions converts the light section into point light options.
func (c *Config) LightOptions() []light.LightBuilderOption {
	var opts []light.LightBuilderOption
	if p := c.Light.Position; len(p) == 3 {
		opts = append(opts, light.WithPosition(mgl32.Vec3{p[0], p[1], p[2]}))
	}
	if col := c.Light.Color; len(col) == 4 {
		opts = append(opts, light.WithColor(mgl32.Vec4{col[0], col[1], col[2], col[3]}))
	}
	if c.Light.AttenuationDistance > 0 {
		opts = append(opts, light.WithAttenuationDistance(c.Light.AttenuationDistance))
	}
	if c.Light.Rotating {
		opts = append(opts, light.WithRotating(c.Light.AngularSpeed))
	}
	return opts
}

// SceneOptions converts the scene, light and animation sections into scene options.
//
// Parameters:
//   - logger: the scene and evaluator logger, may be nil
//
// Returns:
//   - []scene.SceneBuilderOption: the options
func (c *Config) SceneOptions(logger *slog.Logger) []scene.SceneBuilderOption {
	return []scene.SceneBuilderOption{
		scene.WithComputeWorkers(c.Scene.Workers),
		scene.WithShadowSettings(light.ShadowSettings{
			Resolution: c.Scene.ShadowMapResolution,
			Bias:       c.Scene.ShadowBias,
		}),
		scene.WithLight(light.NewPointLight(c.LightOptions()...)),
		scene.WithEvaluatorOptions(c.EvaluatorOptions(logger)...),
		scene.WithLogger(logger),
	}
}
