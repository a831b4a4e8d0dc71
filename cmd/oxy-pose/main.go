// Command oxy-pose loads a glTF model, evaluates one of its animations at a list of times
// and writes the resulting bone table as YAML.
//
// Usage:
//
//	oxy-pose [-config pose.yaml] [-anim walk] [-t 0,0.5,1] [-rotation slerp|hold] [-time-policy clamp|wrap-first] model.glb
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-skinning/engine/config"
	"github.com/Carmen-Shannon/oxy-skinning/engine/loader"
	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"
)

var (
	errUsage        = errors.New("usage: oxy-pose [flags] model.gltf|model.glb")
	errNotSkinned   = errors.New("model has no skeleton")
	errUnknownClip  = errors.New("unknown animation")
	errInvalidTimes = errors.New("invalid -t list")
)

type poseDocument struct {
	Model          string  `yaml:"model"`
	Animation      string  `yaml:"animation,omitempty"`
	TicksPerSecond float64 `yaml:"ticks_per_second"`
	Poses          []pose  `yaml:"poses"`
}

type pose struct {
	Time  float64    `yaml:"time"`
	Ticks float64    `yaml:"ticks"`
	Bones []bonePose `yaml:"bones"`
}

type bonePose struct {
	Name  string    `yaml:"name"`
	ID    uint32    `yaml:"id"`
	Final []float32 `yaml:"final,flow"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "oxy-pose:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("oxy-pose", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML or TOML config file")
	animName := fs.String("anim", "", "animation to evaluate (default: the first clip, or bind pose when there is none)")
	times := fs.String("t", "0", "comma separated sample times in seconds")
	rotation := fs.String("rotation", "", "rotation interpolation: slerp or hold")
	timePolicy := fs.String("time-policy", "", "out-of-range time policy: clamp or wrap-first")
	tps := fs.Float64("tps", 0, "ticks per second for clips that do not declare one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	var cfg config.Config
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	cfg.Resolve(config.Flags{
		RotationMode:   *rotation,
		TimePolicy:     *timePolicy,
		TicksPerSecond: *tps,
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	seconds, err := parseTimes(*times)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	l := loader.NewLoader(loader.BackendTypeGLTF,
		loader.WithLogger(logger),
		loader.WithTicksPerSecond(cfg.Animation.TicksPerSecond),
	)
	m, err := l.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	doc, err := evaluate(m, *animName, seconds, &cfg, logger)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func parseTimes(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %q", errInvalidTimes, field)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no times", errInvalidTimes)
	}
	return out, nil
}

// evaluate poses the model's skeleton at each time and collects the bone tables.
func evaluate(m model.Model, animName string, seconds []float64, cfg *config.Config, logger *slog.Logger) (poseDocument, error) {
	skel := m.Skeleton()
	if skel == nil || skel.Bones == nil {
		return poseDocument{}, fmt.Errorf("%s: %w", m.Name(), errNotSkinned)
	}

	clip, err := selectClip(m, animName)
	if err != nil {
		return poseDocument{}, err
	}

	doc := poseDocument{
		Model:          m.Name(),
		TicksPerSecond: cfg.Animation.TicksPerSecond,
	}
	if clip != nil {
		doc.Animation = clip.Name
		doc.TicksPerSecond = clip.TicksRate()
	}

	eval := skeleton.NewEvaluator(skel, clip, cfg.EvaluatorOptions(logger)...)
	names := skel.Bones.Names()
	bones := skel.NewBoneTable()

	for _, t := range seconds {
		ticks := t * float64(cfg.Animation.Speed) * doc.TicksPerSecond
		if cfg.Animation.Loop && clip != nil && clip.Duration > 0 {
			ticks = math.Mod(ticks, clip.Duration)
			if ticks < 0 {
				ticks += clip.Duration
			}
		}

		if err := eval.Pose(ticks, bones); err != nil {
			return poseDocument{}, fmt.Errorf("t=%v: %w", t, err)
		}

		p := pose{Time: t, Ticks: ticks, Bones: make([]bonePose, len(names))}
		for id, name := range names {
			final := bones[id].Final
			p.Bones[id] = bonePose{Name: name, ID: uint32(id), Final: append([]float32(nil), final[:]...)}
		}
		doc.Poses = append(doc.Poses, p)
	}
	return doc, nil
}

func selectClip(m model.Model, name string) (*model.Animation, error) {
	if name == "" {
		if clips := m.Animations(); len(clips) > 0 {
			return clips[0], nil
		}
		return nil, nil
	}
	clip, ok := m.Animation(name)
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", errUnknownClip, name, strings.Join(m.AnimationNames(), ", "))
	}
	return clip, nil
}
