package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
)

// Ensure ManifestClassifier implements service.Classifier.
var _ service.Classifier = (*ManifestClassifier)(nil)

// manifestFile is the on-disk layout of a batch manifest:
//
//	documents:
//	  - file: scan001.pdf
//	    type: receipt
//	    fields:
//	      Date: 2024-03-15
//	      Merchant: Amazon
//	      Amount: 19.99
type manifestFile struct {
	Documents []manifestDocument `yaml:"documents"`
}

type manifestDocument struct {
	Fields map[string]string `yaml:"fields"`
	File   string            `yaml:"file"`
	Type   string            `yaml:"type"`
}

// ManifestClassifier answers classification requests from a YAML manifest
// produced by an external classification step.
type ManifestClassifier struct {
	entries map[string]service.Classification
	paths   []string
}

// LoadManifest reads and validates a manifest. Relative file paths are
// resolved against the manifest's directory, so every entry is absolute.
func LoadManifest(path string) (*ManifestClassifier, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied manifest path
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path %s: %w", path, err)
	}
	base := filepath.Dir(abs)
	m := &ManifestClassifier{entries: make(map[string]service.Classification, len(file.Documents))}

	for i, doc := range file.Documents {
		if doc.File == "" {
			return nil, fmt.Errorf("manifest document %d: missing file", i+1)
		}

		docType, err := model.ParseDocumentType(doc.Type)
		if err != nil {
			return nil, fmt.Errorf("manifest document %s: %w", doc.File, err)
		}

		fields, err := model.NewFields(doc.Fields)
		if err != nil {
			return nil, fmt.Errorf("manifest document %s: %w", doc.File, err)
		}

		docPath := doc.File
		if !filepath.IsAbs(docPath) {
			docPath = filepath.Join(base, docPath)
		}
		docPath = filepath.Clean(docPath)

		if _, dup := m.entries[docPath]; dup {
			return nil, fmt.Errorf("manifest lists %s twice", doc.File)
		}

		m.entries[docPath] = service.Classification{DocumentType: docType, Fields: fields}
		m.paths = append(m.paths, docPath)
	}

	return m, nil
}

// Paths returns the documents in manifest order.
func (m *ManifestClassifier) Paths() []string {
	paths := make([]string, len(m.paths))
	copy(paths, m.paths)
	return paths
}

// Classify returns the manifest's entry for path.
func (m *ManifestClassifier) Classify(_ context.Context, path string) (*service.Classification, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = filepath.Clean(path)
	}
	entry, ok := m.entries[key]
	if !ok {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: %s is not in the manifest", common.ErrClassificationFailed, path),
			Retryable: false,
		}
	}
	return &service.Classification{
		DocumentType: entry.DocumentType,
		Fields:       entry.Fields.Clone(),
	}, nil
}
