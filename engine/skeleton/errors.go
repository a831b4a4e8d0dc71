package skeleton

import "errors"

var (
	// ErrMalformedTrack is returned when a track that would be used has an empty key array.
	ErrMalformedTrack = errors.New("skeleton: malformed animation track")

	// ErrFactorOutOfRange is returned when a time does not fall between its bracketing keys.
	ErrFactorOutOfRange = errors.New("skeleton: interpolation factor out of range")

	// ErrBoneTableTooSmall is returned when the supplied bone table cannot hold every bone of the skeleton.
	ErrBoneTableTooSmall = errors.New("skeleton: bone table smaller than skeleton")

	// ErrNoSkeleton is returned when posing without a node hierarchy.
	ErrNoSkeleton = errors.New("skeleton: no node hierarchy")
)
