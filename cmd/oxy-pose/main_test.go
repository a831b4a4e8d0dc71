package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-skinning/engine/config"
)

// liftDocument is a single bone "hip" at y=1 with a clip "lift" raising it to y=3 over one second.
func liftDocument(animated bool) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{
		{Name: "hip", Translation: [3]float32{0, 1, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		{Name: "body", Mesh: gltf.Index(0), Skin: gltf.Index(0)},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0, 1}}}
	doc.Scene = gltf.Index(0)

	doc.Meshes = []*gltf.Mesh{{
		Name: "body",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				"POSITION":  modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
				"JOINTS_0":  modeler.WriteJoints(doc, [][4]uint16{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}),
				"WEIGHTS_0": modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}),
			},
			Indices: gltf.Index(modeler.WriteIndices(doc, []uint32{0, 1, 2})),
		}},
	}}
	doc.Skins = []*gltf.Skin{{Joints: []uint32{0}}}

	if animated {
		times := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 1})
		lift := modeler.WritePosition(doc, [][3]float32{{0, 1, 0}, {0, 3, 0}})
		doc.Animations = []*gltf.Animation{{
			Name:     "lift",
			Samplers: []*gltf.AnimationSampler{{Input: gltf.Index(times), Output: gltf.Index(lift), Interpolation: gltf.InterpolationLinear}},
			Channels: []*gltf.Channel{{Sampler: gltf.Index(0), Target: gltf.ChannelTarget{Node: gltf.Index(0), Path: gltf.TRSTranslation}}},
		}}
	}
	return doc
}

func saveModel(t *testing.T, doc *gltf.Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifter.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func runPose(t *testing.T, args ...string) poseDocument {
	t.Helper()
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(args, &stdout, &stderr), stderr.String())

	var doc poseDocument
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &doc))
	return doc
}

// hipY is the y translation of the hip's skinning matrix (column-major, element 13).
func hipY(p pose) float32 {
	return p.Bones[0].Final[13]
}

func TestRun_EvaluatesClipAtEachTime(t *testing.T) {
	doc := runPose(t, "-t", "0, 0.5,2", saveModel(t, liftDocument(true)))

	assert.Equal(t, "lift", doc.Animation)
	assert.Equal(t, 1000.0, doc.TicksPerSecond)
	require.Len(t, doc.Poses, 3)

	assert.Equal(t, 500.0, doc.Poses[1].Ticks)
	require.Len(t, doc.Poses[1].Bones, 1)
	assert.Equal(t, "hip", doc.Poses[1].Bones[0].Name)
	assert.Equal(t, uint32(0), doc.Poses[1].Bones[0].ID)
	assert.Len(t, doc.Poses[1].Bones[0].Final, 16)

	assert.InDelta(t, 1, hipY(doc.Poses[0]), 1e-5)
	assert.InDelta(t, 2, hipY(doc.Poses[1]), 1e-5)
	assert.InDelta(t, 3, hipY(doc.Poses[2]), 1e-5)
}

func TestRun_ConfigLoopsAndScalesTicks(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "pose.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[animation]\nticks_per_second = 10.0\nloop = true\n"), 0o644))

	doc := runPose(t, "-config", cfgPath, "-anim", "lift", "-t", "1.5", saveModel(t, liftDocument(true)))

	assert.Equal(t, 10.0, doc.TicksPerSecond)
	require.Len(t, doc.Poses, 1)
	assert.InDelta(t, 5, doc.Poses[0].Ticks, 1e-9)
	assert.InDelta(t, 2, hipY(doc.Poses[0]), 1e-5)
}

func TestRun_BindPoseWithoutClips(t *testing.T) {
	doc := runPose(t, saveModel(t, liftDocument(false)))

	assert.Empty(t, doc.Animation)
	require.Len(t, doc.Poses, 1)
	assert.InDelta(t, 1, hipY(doc.Poses[0]), 1e-5)
}

func TestRun_Errors(t *testing.T) {
	model := saveModel(t, liftDocument(true))

	for _, tc := range []struct {
		name string
		args []string
		want error
	}{
		{name: "no model", args: nil, want: errUsage},
		{name: "bad rotation", args: []string{"-rotation", "nlerp", model}, want: config.ErrInvalid},
		{name: "bad times", args: []string{"-t", "soon", model}, want: errInvalidTimes},
		{name: "empty times", args: []string{"-t", " , ", model}, want: errInvalidTimes},
		{name: "unknown clip", args: []string{"-anim", "walk", model}, want: errUnknownClip},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tc.args, &stdout, &stderr)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestParseTimes(t *testing.T) {
	got, err := parseTimes("0,0.25, 1,")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 1}, got)
}
