package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
)

var (
	// ErrUnsupportedFormat is returned when a file extension or stream header is not a known model format.
	ErrUnsupportedFormat = errors.New("unsupported model format")

	// ErrNoDocument is returned when a decoder yields no usable document.
	ErrNoDocument = errors.New("no document loaded")

	// ErrInvalidAccessor is returned when accessor data cannot be read as requested.
	ErrInvalidAccessor = errors.New("invalid accessor")
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	renderer renderer.Renderer
	logger   *slog.Logger

	ticksPerSecond float64

	modelCache map[string]model.Model

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching 3D models.
// It abstracts the file format behind a backend and manages a cache of previously loaded models.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: ErrUnsupportedFormat for unknown extensions, or the import error
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key and model name
	//   - r: the reader providing model data
	//   - isGLB: true if the reader must provide GLB binary data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:             sync.RWMutex{},
		logger:         slog.Default(),
		ticksPerSecond: model.DefaultTicksPerSecond,
		modelCache:     make(map[string]model.Model),
	}

	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.logger, l.ticksPerSecond)
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	m, err := l.importedToModel(imported)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.modelCache[path] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	if l.backend == nil {
		return nil, ErrUnsupportedFormat
	}

	imported, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	imported.Name = name

	m, err := l.importedToModel(imported)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects an appropriate loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		if l.backend != nil {
			return l.backend, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// importedToModel converts an ImportedModel (CPU data) into a Model.
// All meshes are packed into one vertex and index buffer held by a single BindGroupProvider,
// uploaded immediately when a Renderer is available.
//
// Parameters:
//   - imported: the CPU-side ImportedModel containing mesh, skeleton and animation data
//
// Returns:
//   - model.Model: the engine-ready Model
//   - error: error if GPU resource creation fails
func (l *loader) importedToModel(imported *model.ImportedModel) (model.Model, error) {
	if imported.TruncatedInfluences > 0 {
		l.logger.Warn("bone influences truncated",
			"model", imported.Name,
			"dropped", imported.TruncatedInfluences,
			"max_per_vertex", model.MaxBonesPerVertex)
	}

	provider := bind_group_provider.NewBindGroupProvider(imported.Name + "_mesh")
	mdl := model.NewModel(
		model.WithImported(imported),
		model.WithMeshProvider(provider),
	)

	if l.renderer != nil {
		if err := l.renderer.InitMeshBuffers(provider, mdl.VertexData(), mdl.IndexData(), mdl.IndexCount()); err != nil {
			return nil, fmt.Errorf("failed to init mesh buffers for %q: %w", imported.Name, err)
		}
	}

	l.logger.Debug("model loaded",
		"model", imported.Name,
		"meshes", len(imported.Meshes),
		"animations", len(imported.Animations),
		"skinned", mdl.Skinned())
	return mdl, nil
}
