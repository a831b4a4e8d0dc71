package loader

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadCachesByPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm.glb")
	require.NoError(t, gltf.SaveBinary(armDocument(), path))

	l := NewLoader(BackendTypeGLTF)
	m, err := l.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "arm", m.Name())
	assert.True(t, m.Skinned())
	assert.Equal(t, 3, m.IndexCount())
	assert.Equal(t, []string{"wave"}, m.AnimationNames())
	assert.Len(t, m.VertexData(), 3*80)
	assert.Equal(t, 3, m.MeshProvider().IndexCount())

	again, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Same(t, m, l.Get(path))
	assert.Len(t, l.Models(), 1)
}

func TestLoader_UnsupportedExtension(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	_, err := l.Load("mesh.obj")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoader_LoadReaderUsesCacheName(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithTicksPerSecond(30))
	m, err := l.LoadReader("arm-stream", bytes.NewReader(encodeGLB(t, armDocument())), true)
	require.NoError(t, err)

	assert.Equal(t, "arm-stream", m.Name())
	clip, ok := m.Animation("wave")
	require.True(t, ok)
	assert.Equal(t, 30.0, clip.Duration)
	assert.NotNil(t, l.Get("arm-stream"))
}

func TestLoader_WithModelPrepopulatesCache(t *testing.T) {
	pre := model.NewModel(model.WithName("pre"))
	l := NewLoader(BackendTypeGLTF, WithModel("pre", pre))

	got, err := l.LoadReader("pre", bytes.NewReader(nil), true)
	require.NoError(t, err)
	assert.Same(t, pre, got)
}

func TestLoader_ReaderDecodeError(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	_, err := l.LoadReader("bad", bytes.NewReader([]byte("glTF garbage")), true)
	assert.Error(t, err)
	assert.Nil(t, l.Get("bad"))
}
