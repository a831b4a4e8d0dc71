package skeleton

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/common"
	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
)

// evaluator is the implementation of the Evaluator interface.
// It is immutable after construction and safe for concurrent use.
type evaluator struct {
	skeleton  *model.Skeleton
	animation *model.Animation
	channels  map[string]*model.NodeAnimation
	malformed map[string]bool

	rotationMode    RotationMode
	timePolicy      TimePolicy
	malformedPolicy MalformedTrackPolicy
	logger          *slog.Logger
}

// Evaluator walks a skeleton's node hierarchy at a point in time and writes the skinning matrix of every bone.
// An Evaluator is bound to one skeleton and one animation clip; a nil clip poses the skeleton at bind pose.
type Evaluator interface {
	// Evaluate computes the subtree rooted at node.
	// For each node the local transform is the bind transform, replaced by T * R * S of the interpolated
	// track when the clip animates that node. The global transform is parent * local, and nodes that name
	// a bone receive Final = GlobalInverse * global * Offset.
	//
	// Parameters:
	//   - timeTicks: the clip time in ticks
	//   - node: the subtree root
	//   - parent: the global transform of node's parent
	//   - bones: the bone table to write, indexed by bone id
	//
	// Returns:
	//   - error: ErrMalformedTrack, ErrFactorOutOfRange or ErrBoneTableTooSmall, wrapped with the node name
	Evaluate(timeTicks float64, node *model.Node, parent mgl32.Mat4, bones []model.BoneInfo) error

	// Pose evaluates the whole skeleton from its root with an identity parent.
	//
	// Parameters:
	//   - timeTicks: the clip time in ticks
	//   - bones: the bone table to write, at least as long as the skeleton's bone count
	//
	// Returns:
	//   - error: any evaluation error
	Pose(timeTicks float64, bones []model.BoneInfo) error

	// Channel returns the track that animates the named node.
	//
	// Parameters:
	//   - nodeName: the node name
	//
	// Returns:
	//   - *model.NodeAnimation: the track, or nil
	//   - bool: whether a track exists
	Channel(nodeName string) (*model.NodeAnimation, bool)

	// Animation returns the bound clip (may be nil).
	Animation() *model.Animation

	// Skeleton returns the bound skeleton.
	Skeleton() *model.Skeleton
}

var _ Evaluator = &evaluator{}

// NewEvaluator creates an Evaluator for a skeleton and clip.
// The node-name to track map is built once here; when several tracks name the same node the first one wins.
//
// Parameters:
//   - skel: the skeleton to pose
//   - anim: the clip to sample, or nil for bind pose
//   - options: a variadic list of EvaluatorBuilderOption functions
//
// Returns:
//   - Evaluator: the configured evaluator
func NewEvaluator(skel *model.Skeleton, anim *model.Animation, options ...EvaluatorBuilderOption) Evaluator {
	e := &evaluator{
		skeleton:  skel,
		animation: anim,
		channels:  make(map[string]*model.NodeAnimation),
		malformed: make(map[string]bool),
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(e)
	}
	if anim == nil {
		return e
	}
	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if _, exists := e.channels[ch.NodeName]; exists {
			continue
		}
		e.channels[ch.NodeName] = ch
		if !ch.Complete() {
			e.malformed[ch.NodeName] = true
			if e.malformedPolicy == MalformedTrackBindPose {
				e.logger.Warn("animation track has empty key array, using bind pose",
					"animation", anim.Name, "node", ch.NodeName,
					"positions", len(ch.PositionKeys), "rotations", len(ch.RotationKeys), "scales", len(ch.ScaleKeys))
			}
		}
	}
	return e
}

func (e *evaluator) Animation() *model.Animation {
	return e.animation
}

func (e *evaluator) Skeleton() *model.Skeleton {
	return e.skeleton
}

func (e *evaluator) Channel(nodeName string) (*model.NodeAnimation, bool) {
	ch, ok := e.channels[nodeName]
	return ch, ok
}

func (e *evaluator) Pose(timeTicks float64, bones []model.BoneInfo) error {
	if e.skeleton == nil || e.skeleton.Root == nil {
		return ErrNoSkeleton
	}
	if e.skeleton.Bones != nil && len(bones) < e.skeleton.Bones.Len() {
		return fmt.Errorf("%w: have %d, need %d", ErrBoneTableTooSmall, len(bones), e.skeleton.Bones.Len())
	}
	return e.Evaluate(timeTicks, e.skeleton.Root, mgl32.Ident4(), bones)
}

func (e *evaluator) Evaluate(timeTicks float64, node *model.Node, parent mgl32.Mat4, bones []model.BoneInfo) error {
	local, err := e.localTransform(timeTicks, node)
	if err != nil {
		return err
	}
	global := parent.Mul4(local)

	if e.skeleton.Bones != nil {
		if id, ok := e.skeleton.Bones.Lookup(node.Name); ok {
			if int(id) >= len(bones) {
				return fmt.Errorf("node %q: bone id %d: %w", node.Name, id, ErrBoneTableTooSmall)
			}
			bones[id].Final = e.skeleton.GlobalInverse.Mul4(global).Mul4(bones[id].Offset)
		}
	}

	for _, child := range node.Children {
		if err := e.Evaluate(timeTicks, child, global, bones); err != nil {
			return err
		}
	}
	return nil
}

// localTransform returns the node's bind transform or, when the clip animates it, the sampled T * R * S.
func (e *evaluator) localTransform(timeTicks float64, node *model.Node) (mgl32.Mat4, error) {
	ch, ok := e.channels[node.Name]
	if !ok {
		return node.Transform, nil
	}
	if e.malformed[node.Name] {
		if e.malformedPolicy == MalformedTrackBindPose {
			return node.Transform, nil
		}
		return mgl32.Mat4{}, fmt.Errorf("node %q: %w", node.Name, ErrMalformedTrack)
	}

	pos, err := interpolateVector(timeTicks, ch.PositionKeys, e.timePolicy)
	if err != nil {
		return mgl32.Mat4{}, fmt.Errorf("node %q position: %w", node.Name, err)
	}
	rot, err := interpolateRotation(timeTicks, ch.RotationKeys, e.timePolicy, e.rotationMode)
	if err != nil {
		return mgl32.Mat4{}, fmt.Errorf("node %q rotation: %w", node.Name, err)
	}
	scale, err := interpolateVector(timeTicks, ch.ScaleKeys, e.timePolicy)
	if err != nil {
		return mgl32.Mat4{}, fmt.Errorf("node %q scale: %w", node.Name, err)
	}
	return common.ComposeTRS(pos, rot, scale), nil
}
