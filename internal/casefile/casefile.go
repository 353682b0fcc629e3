// Package casefile loads case documents from disk for offline analysis.
//
// A manifest lists the documents of one case:
//
//	case_id: 42
//	documents:
//	  - type: transcript
//	    path: trial/day1.txt
//	  - type: appeal
//	    content: |
//	      The witness recanted her testimony...
//
// Relative paths resolve against the manifest's directory. JSON manifests
// are accepted as well.
package casefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lvonguyen/casescreen/internal/indicator"
)

// ErrEmptyManifest is returned when a manifest lists no documents.
var ErrEmptyManifest = errors.New("manifest has no documents")

// Manifest describes one case and where its documents live.
type Manifest struct {
	CaseID    int64   `yaml:"case_id"`
	Documents []Entry `yaml:"documents"`

	dir string
}

// Entry is one document of a manifest. Content takes precedence over Path.
type Entry struct {
	Type    string `yaml:"type"`
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// LoadManifest parses the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if len(m.Documents) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyManifest)
	}
	m.dir = filepath.Dir(path)

	return &m, nil
}

// Load reads every document of the manifest, in manifest order.
func (m *Manifest) Load() ([]indicator.Document, error) {
	docs := make([]indicator.Document, 0, len(m.Documents))
	for i, e := range m.Documents {
		if e.Content != "" {
			docs = append(docs, indicator.Document{Type: e.Type, Content: e.Content})
			continue
		}
		if e.Path == "" {
			return nil, fmt.Errorf("document %d: neither path nor content set", i)
		}

		path := e.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.dir, path)
		}
		doc, err := ReadDocument(path, e.Type)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ReadDocument reads a plain-text document.
func ReadDocument(path, documentType string) (indicator.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return indicator.Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	return indicator.Document{Type: documentType, Content: string(data)}, nil
}

// ParseArgs reads documents named on the command line as "type=path" or a
// bare path. A bare path leaves the type empty.
func ParseArgs(args []string) ([]indicator.Document, error) {
	docs := make([]indicator.Document, 0, len(args))
	for _, arg := range args {
		docType, path := "", arg
		if t, p, ok := strings.Cut(arg, "="); ok && t != "" && !strings.ContainsRune(t, filepath.Separator) {
			docType, path = t, p
		}

		doc, err := ReadDocument(path, docType)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
