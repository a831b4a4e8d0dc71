package skeleton

import "log/slog"

// RotationMode selects how rotation keys are blended between brackets.
type RotationMode int

const (
	// RotationSlerp interpolates spherically along the shortest arc.
	RotationSlerp RotationMode = iota
	// RotationHoldStart holds the bracket's start key, renormalized.
	RotationHoldStart
)

// TimePolicy selects what happens for times outside a track's key range.
type TimePolicy int

const (
	// TimeClampToEdge returns the first key before the track and the last key after it.
	TimeClampToEdge TimePolicy = iota
	// TimeWrapFirst uses bracket 0 with the factor clamped into [0, 1].
	TimeWrapFirst
)

// MalformedTrackPolicy selects how a track with an empty key array is handled.
type MalformedTrackPolicy int

const (
	// MalformedTrackFail makes evaluation return ErrMalformedTrack when the node is visited.
	MalformedTrackFail MalformedTrackPolicy = iota
	// MalformedTrackBindPose logs the track once and uses the node's bind transform instead.
	MalformedTrackBindPose
)

// EvaluatorBuilderOption is a functional option for configuring an Evaluator via NewEvaluator.
type EvaluatorBuilderOption func(*evaluator)

// WithRotationMode sets the rotation interpolation mode.
//
// Parameters:
//   - mode: RotationSlerp or RotationHoldStart
//
// Returns:
//   - EvaluatorBuilderOption: a function that applies the mode to an evaluator
func WithRotationMode(mode RotationMode) EvaluatorBuilderOption {
	return func(e *evaluator) {
		e.rotationMode = mode
	}
}

// WithTimePolicy sets the out-of-range time policy.
//
// Parameters:
//   - policy: TimeClampToEdge or TimeWrapFirst
//
// Returns:
//   - EvaluatorBuilderOption: a function that applies the policy to an evaluator
func WithTimePolicy(policy TimePolicy) EvaluatorBuilderOption {
	return func(e *evaluator) {
		e.timePolicy = policy
	}
}

// WithMalformedTrackPolicy sets how tracks with empty key arrays are handled.
func WithMalformedTrackPolicy(policy MalformedTrackPolicy) EvaluatorBuilderOption {
	return func(e *evaluator) {
		e.malformedPolicy = policy
	}
}

// WithLogger sets the logger used for track diagnostics.
func WithLogger(logger *slog.Logger) EvaluatorBuilderOption {
	return func(e *evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// ParseRotationMode maps a configuration string to a RotationMode.
// The empty string selects RotationSlerp.
//
// Parameters:
//   - s: "slerp" or "hold"
//
// Returns:
//   - RotationMode: the parsed mode
//   - bool: false for unknown strings
func ParseRotationMode(s string) (RotationMode, bool) {
	switch s {
	case "", "slerp":
		return RotationSlerp, true
	case "hold":
		return RotationHoldStart, true
	}
	return RotationSlerp, false
}

// ParseTimePolicy maps a configuration string to a TimePolicy.
// The empty string selects TimeClampToEdge.
//
// Parameters:
//   - s: "clamp" or "wrap-first"
//
// Returns:
//   - TimePolicy: the parsed policy
//   - bool: false for unknown strings
func ParseTimePolicy(s string) (TimePolicy, bool) {
	switch s {
	case "", "clamp":
		return TimeClampToEdge, true
	case "wrap-first":
		return TimeWrapFirst, true
	}
	return TimeClampToEdge, false
}

// ParseMalformedTrackPolicy maps a configuration string to a MalformedTrackPolicy.
// The empty string selects MalformedTrackFail.
func ParseMalformedTrackPolicy(s string) (MalformedTrackPolicy, bool) {
	switch s {
	case "", "fail":
		return MalformedTrackFail, true
	case "bind-pose":
		return MalformedTrackBindPose, true
	}
	return MalformedTrackFail, false
}
