package loader

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	doc            *gltf.Document
	names          []string
	ticksPerSecond float64
	logger         *slog.Logger
}

// gltfAnimationExtractor defines the interface for extracting animation clips from a glTF document.
//
// Channels are grouped per target node into one NodeAnimation keyed by node name. Keyframe times
// are converted from seconds to ticks. A node missing one of the three tracks receives a single
// key holding its bind value, so every extracted track is complete.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - *model.Animation: the extracted clip
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int) (*model.Animation, error)

	// ExtractAllAnimations extracts every animation from the document.
	//
	// Returns:
	//   - []*model.Animation: all extracted clips
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]*model.Animation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//   - names: per-node names from gltfNodeNames
//   - ticksPerSecond: rate used to convert keyframe seconds into ticks
//   - logger: destination for import warnings
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(doc *gltf.Document, names []string, ticksPerSecond float64, logger *slog.Logger) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{
		doc:            doc,
		names:          names,
		ticksPerSecond: ticksPerSecond,
		logger:         logger,
	}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (*model.Animation, error) {
	if animIndex < 0 || animIndex >= len(e.doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}
	anim := e.doc.Animations[animIndex]

	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	var order []uint32
	tracks := make(map[uint32]*model.NodeAnimation)
	var duration float64

	for i, ch := range anim.Channels {
		if ch.Target.Node == nil || ch.Sampler == nil {
			continue
		}
		nodeIndex := *ch.Target.Node
		if int(nodeIndex) >= len(e.doc.Nodes) {
			return nil, fmt.Errorf("animation %q channel %d: invalid node index %d", name, i, nodeIndex)
		}
		if int(*ch.Sampler) >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, *ch.Sampler)
		}
		sampler := anim.Samplers[*ch.Sampler]
		if sampler.Input == nil || sampler.Output == nil {
			return nil, fmt.Errorf("animation %q channel %d: sampler without input or output", name, i)
		}

		var outType gltf.AccessorType
		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			outType = gltf.AccessorVec3
		case gltf.TRSRotation:
			outType = gltf.AccessorVec4
		default:
			// morph target weights are not animated
			continue
		}

		times, err := gltfReadFloats(e.doc, *sampler.Input, gltf.AccessorScalar)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", name, i, err)
		}
		values, err := gltfReadFloats(e.doc, *sampler.Output, outType)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read values: %w", name, i, err)
		}

		comps := gltfAccessorComponents(outType)
		stride, offset := 1, 0
		switch sampler.Interpolation {
		case gltf.InterpolationCubicSpline:
			// in-tangent, value, out-tangent
			stride, offset = 3, 1
		case gltf.InterpolationStep:
			e.logger.Warn("step interpolation sampled as linear", "animation", name, "channel", i, "node", e.names[nodeIndex])
		}
		if len(values)/comps < len(times)*stride {
			return nil, fmt.Errorf("animation %q channel %d: %d keys but %d values", name, i, len(times), len(values)/comps)
		}

		track, ok := tracks[nodeIndex]
		if !ok {
			track = &model.NodeAnimation{NodeName: e.names[nodeIndex]}
			tracks[nodeIndex] = track
			order = append(order, nodeIndex)
		}

		value := func(k int) []float32 {
			at := (k*stride + offset) * comps
			return values[at : at+comps]
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation:
			if track.PositionKeys == nil {
				track.PositionKeys = e.vectorKeys(times, value)
			}
		case gltf.TRSScale:
			if track.ScaleKeys == nil {
				track.ScaleKeys = e.vectorKeys(times, value)
			}
		case gltf.TRSRotation:
			if track.RotationKeys == nil {
				keys := make([]model.QuatKey, len(times))
				for k, t := range times {
					v := value(k)
					keys[k] = model.QuatKey{Time: e.ticks(t), Value: gltfQuat([4]float32{v[0], v[1], v[2], v[3]})}
				}
				track.RotationKeys = keys
			}
		}

		if len(times) > 0 {
			duration = max(duration, e.ticks(times[len(times)-1]))
		}
	}

	channels := make([]model.NodeAnimation, 0, len(order))
	for _, nodeIndex := range order {
		track := tracks[nodeIndex]
		e.fillBindTracks(track, e.doc.Nodes[nodeIndex])
		channels = append(channels, *track)
	}

	return &model.Animation{
		Name:           name,
		Duration:       duration,
		TicksPerSecond: e.ticksPerSecond,
		Channels:       channels,
	}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]*model.Animation, error) {
	clips := make([]*model.Animation, 0, len(e.doc.Animations))
	for i := range e.doc.Animations {
		clip, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (e *gltfAnimationExtractorImpl) ticks(seconds float32) float64 {
	return float64(seconds) * e.ticksPerSecond
}

func (e *gltfAnimationExtractorImpl) vectorKeys(times []float32, value func(int) []float32) []model.VectorKey {
	keys := make([]model.VectorKey, len(times))
	for k, t := range times {
		v := value(k)
		keys[k] = model.VectorKey{Time: e.ticks(t), Value: mgl32.Vec3{v[0], v[1], v[2]}}
	}
	return keys
}

// fillBindTracks gives each empty track a single key at tick 0 holding the node's bind value.
func (e *gltfAnimationExtractorImpl) fillBindTracks(track *model.NodeAnimation, node *gltf.Node) {
	t, r, s := gltfNodeTRS(node)
	if len(track.PositionKeys) == 0 {
		track.PositionKeys = []model.VectorKey{{Time: 0, Value: t}}
	}
	if len(track.RotationKeys) == 0 {
		track.RotationKeys = []model.QuatKey{{Time: 0, Value: r}}
	}
	if len(track.ScaleKeys) == 0 {
		track.ScaleKeys = []model.VectorKey{{Time: 0, Value: s}}
	}
}
