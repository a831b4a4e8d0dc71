package loader

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"

	"github.com/qmuntal/gltf"
)

// gltfMagic is the four-byte header every GLB stream starts with.
const gltfMagic = "glTF"

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	logger         *slog.Logger
	ticksPerSecond float64
}

// gltfImporter defines the interface for orchestrating a full glTF/GLB import.
// It decodes the document and runs every extractor to produce a complete ImportedModel.
type gltfImporter interface {
	// Import loads a glTF/GLB file and extracts meshes, skeleton and animations.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *model.ImportedModel: the fully populated imported model
	//   - error: error if import fails
	Import(path string) (*model.ImportedModel, error)

	// ImportReader loads a glTF document from a reader and extracts all data.
	// Buffers referenced by relative URI cannot be resolved from a stream.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true if the stream must carry the GLB header
	//
	// Returns:
	//   - *model.ImportedModel: the fully populated imported model
	//   - error: error if import fails
	ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error)

	// ImportDocument extracts all data from an already decoded document.
	//
	// Parameters:
	//   - doc: the decoded document
	//   - name: the model name
	//
	// Returns:
	//   - *model.ImportedModel: the fully populated imported model
	//   - error: error if extraction fails
	ImportDocument(doc *gltf.Document, name string) (*model.ImportedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - logger: destination for import warnings
//   - ticksPerSecond: rate used to convert keyframe seconds into ticks
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(logger *slog.Logger, ticksPerSecond float64) gltfImporter {
	if logger == nil {
		logger = slog.Default()
	}
	if ticksPerSecond <= 0 {
		ticksPerSecond = model.DefaultTicksPerSecond
	}
	return &gltfImporterImpl{logger: logger, ticksPerSecond: ticksPerSecond}
}

func (imp *gltfImporterImpl) Import(path string) (*model.ImportedModel, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return imp.ImportDocument(doc, gltfExtractModelName(path))
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	br := bufio.NewReader(r)
	if isGLB {
		magic, err := br.Peek(len(gltfMagic))
		if err != nil || string(magic) != gltfMagic {
			return nil, fmt.Errorf("%w: missing GLB header", ErrUnsupportedFormat)
		}
	}

	var doc gltf.Document
	if err := gltf.NewDecoder(br).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode from reader: %w", err)
	}
	return imp.ImportDocument(&doc, "")
}

func (imp *gltfImporterImpl) ImportDocument(doc *gltf.Document, name string) (*model.ImportedModel, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	names := gltfNodeNames(doc)

	skeletonExtractor := newGLTFSkeletonExtractor(doc, names)
	skeleton, err := skeletonExtractor.ExtractSkeleton()
	if err != nil {
		return nil, fmt.Errorf("skeleton extraction failed: %w", err)
	}

	meshExtractor := newGLTFMeshExtractor(doc, names, skeleton, imp.logger)
	meshes, truncated, err := meshExtractor.ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	animationExtractor := newGLTFAnimationExtractor(doc, names, imp.ticksPerSecond, imp.logger)
	animations, err := animationExtractor.ExtractAllAnimations()
	if err != nil {
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}

	return &model.ImportedModel{
		Name:                name,
		Meshes:              meshes,
		Skeleton:            skeleton,
		Animations:          animations,
		TruncatedInfluences: truncated,
	}, nil
}

// gltfExtractModelName derives a model name from a file path by stripping directory and extension.
func gltfExtractModelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// gltfNodeNames returns one name per document node, synthesizing "node_<i>" for unnamed nodes.
// Bones, hierarchy nodes and animation tracks are all matched through these names.
func gltfNodeNames(doc *gltf.Document) []string {
	names := make([]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if n != nil && n.Name != "" {
			names[i] = n.Name
		} else {
			names[i] = fmt.Sprintf("node_%d", i)
		}
	}
	return names
}
