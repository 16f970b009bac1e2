// Package importer loads templates and documents described by a data
// directory manifest into the store.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the manifest at the root of a data directory.
const ManifestFile = "manifest.yaml"

// Manifest describes the templates and documents of a data directory.
type Manifest struct {
	Templates []TemplateEntry `yaml:"templates"`
}

// TemplateEntry is a version manager and its versions.
type TemplateEntry struct {
	Title    string          `yaml:"title"`
	Owner    string          `yaml:"owner"`
	Disabled bool            `yaml:"disabled"`
	Versions []VersionEntry  `yaml:"versions"`
	Data     []DocumentEntry `yaml:"data"`
}

// VersionEntry is one XSD file.
type VersionEntry struct {
	File     string `yaml:"file"`
	Disabled bool   `yaml:"disabled"`
}

// DocumentEntry is one XML document. Version is the 1-based index of the
// version it conforms to; zero means the last version.
type DocumentEntry struct {
	File    string `yaml:"file"`
	Title   string `yaml:"title"`
	Version int    `yaml:"version"`
}

// LoadManifest reads and validates the manifest of dir.
func LoadManifest(dir string) (*Manifest, error) {
	content, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for missing or inconsistent entries.
func (m *Manifest) Validate() error {
	var errs []error
	seen := map[string]bool{}

	for i, t := range m.Templates {
		if t.Title == "" {
			errs = append(errs, fmt.Errorf("templates[%d]: title is required", i))
			continue
		}
		key := t.Owner + "/" + t.Title
		if seen[key] {
			errs = append(errs, fmt.Errorf("template %q: duplicate title", t.Title))
		}
		seen[key] = true

		if len(t.Versions) == 0 {
			errs = append(errs, fmt.Errorf("template %q: at least one version is required", t.Title))
		}
		for j, v := range t.Versions {
			if v.File == "" {
				errs = append(errs, fmt.Errorf("template %q: versions[%d]: file is required", t.Title, j))
			}
		}
		for j, d := range t.Data {
			if d.File == "" {
				errs = append(errs, fmt.Errorf("template %q: data[%d]: file is required", t.Title, j))
			}
			if d.Version < 0 || d.Version > len(t.Versions) {
				errs = append(errs, fmt.Errorf("template %q: data[%d]: version %d out of range", t.Title, j, d.Version))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid manifest: %w", errors.Join(errs...))
	}
	return nil
}
