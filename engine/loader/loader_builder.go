package loader

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithRenderer is an option builder that sets the Renderer used to upload mesh buffers.
//
// Parameters:
//   - r: the renderer instance
//
// Returns:
//   - LoaderBuilderOption: a function that applies the renderer option to a loader
func WithRenderer(r renderer.Renderer) LoaderBuilderOption {
	return func(l *loader) {
		l.renderer = r
	}
}

// WithLogger sets the structured logger used for import warnings.
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithTicksPerSecond sets the rate used to convert glTF keyframe seconds into ticks.
// Non-positive values are ignored.
//
// Parameters:
//   - tps: ticks per second
//
// Returns:
//   - LoaderBuilderOption: a function that applies the tick rate to a loader
func WithTicksPerSecond(tps float64) LoaderBuilderOption {
	return func(l *loader) {
		if tps > 0 {
			l.ticksPerSecond = tps
		}
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}
