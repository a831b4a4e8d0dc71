package animator

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithMaxInstances is an option builder that sets the initial instance capacity.
//
// Parameters:
//   - maxInstances: the capacity to reserve
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the max instances option to an animator
func WithMaxInstances(maxInstances int) AnimatorBuilderOption {
	return func(a *animator) {
		a.backend.SetMaxInstances(uint32(maxInstances))
	}
}

// WithModel is an option builder that assigns a Model. NewAnimator reports SetModel errors.
//
// Parameters:
//   - m: the Model to associate with this animator
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the model option to an animator
func WithModel(m model.Model) AnimatorBuilderOption {
	return func(a *animator) {
		a.pendingModel = m
	}
}

// WithLogger sets the logger for the animator and the evaluators it creates.
func WithLogger(logger *slog.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		a.backend.SetLogger(logger)
	}
}

// WithEvaluatorOptions passes options to every skeleton.Evaluator the skeletal backend creates.
// Ignored by the simple backend.
//
// Parameters:
//   - options: the evaluator options, e.g. skeleton.WithRotationMode
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the evaluator options to an animator
func WithEvaluatorOptions(options ...skeleton.EvaluatorBuilderOption) AnimatorBuilderOption {
	return func(a *animator) {
		a.backend.SetEvaluatorOptions(options...)
	}
}
