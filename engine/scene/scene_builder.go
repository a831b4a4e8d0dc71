package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-skinning/engine/light"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithLight sets the scene's point light.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLight(l light.PointLight) SceneBuilderOption {
	return func(s *scene) {
		s.light = l
	}
}

// WithShadowSettings overrides the shadow map resolution and depth bias.
// Zero fields keep light.ShadowMapResolution and light.DefaultShadowBias.
func WithShadowSettings(settings light.ShadowSettings) SceneBuilderOption {
	return func(s *scene) {
		if settings.Resolution > 0 {
			s.shadow.Resolution = settings.Resolution
		}
		if settings.Bias != 0 {
			s.shadow.Bias = settings.Bias
		}
	}
}

// WithEvaluatorOptions sets the evaluator options of every skeletal animator the scene creates.
func WithEvaluatorOptions(options ...skeleton.EvaluatorBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.evalOptions = options
	}
}

// WithLogger sets the logger of the scene and of the animators it creates.
func WithLogger(logger *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithComputeWorkers sets the number of worker goroutines used during the parallel
// animator phase of Update. Defaults to runtime.NumCPU()-1.
// Higher values may improve throughput with many animator groups or skeletal
// animators; lower values reduce scheduling overhead for simple scenes.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.computeWorkers = max(n, 1)
	}
}
