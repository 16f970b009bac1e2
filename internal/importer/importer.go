package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapexplore/internal/querybuilder"
	"github.com/leapstack-labs/leapexplore/internal/xsd"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// namespace seeds the deterministic ids of imported objects, so that
// re-importing a directory updates rather than duplicates.
var namespace = uuid.MustParse("6f1d3c52-3b9e-4d8e-9a51-0c2f7e4b8d10")

// Result summarizes an import.
type Result struct {
	Managers  int
	Templates int
	Documents int
}

// Importer writes a data directory into a store.
type Importer struct {
	store  core.Store
	logger *slog.Logger
}

// New creates an importer.
// If logger is nil, a discard logger is used.
func New(store core.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{store: store, logger: logger}
}

// Import loads the manifest of dir and upserts every template, version
// manager and document it lists.
func (im *Importer) Import(ctx context.Context, dir string) (*Result, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, entry := range m.Templates {
		if err := im.importTemplate(ctx, dir, entry, res); err != nil {
			return res, fmt.Errorf("template %q: %w", entry.Title, err)
		}
	}

	im.logger.Info("import complete",
		slog.String("dir", dir),
		slog.Int("managers", res.Managers),
		slog.Int("templates", res.Templates),
		slog.Int("documents", res.Documents),
	)
	return res, nil
}

func stableID(parts ...string) string {
	return uuid.NewSHA1(namespace, []byte(strings.Join(parts, "\x00"))).String()
}

func (im *Importer) importTemplate(ctx context.Context, dir string, entry TemplateEntry, res *Result) error {
	vm := &core.TemplateVersionManager{
		ID:         stableID("manager", entry.Owner, entry.Title),
		Title:      entry.Title,
		UserID:     entry.Owner,
		IsDisabled: entry.Disabled,
	}

	for _, v := range entry.Versions {
		content, err := os.ReadFile(filepath.Join(dir, v.File))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", v.File, err)
		}
		if _, err := xsd.Parse(string(content)); err != nil {
			return fmt.Errorf("%s: %w", v.File, err)
		}

		sum := sha256.Sum256(content)
		tmpl := &core.Template{
			ID:       stableID("template", vm.ID, v.File),
			Filename: filepath.Base(v.File),
			Title:    entry.Title,
			Content:  string(content),
			Hash:     hex.EncodeToString(sum[:]),
		}
		if err := im.store.UpsertTemplate(ctx, tmpl); err != nil {
			return err
		}
		res.Templates++

		vm.Versions = append(vm.Versions, tmpl.ID)
		if v.Disabled {
			vm.DisabledVersions = append(vm.DisabledVersions, tmpl.ID)
		}
	}
	vm.Current = vm.Versions[len(vm.Versions)-1]

	if err := im.store.UpsertVersionManager(ctx, vm); err != nil {
		return err
	}
	res.Managers++

	for _, d := range entry.Data {
		content, err := os.ReadFile(filepath.Join(dir, d.File))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", d.File, err)
		}
		if _, err := querybuilder.ParseDocument(string(content)); err != nil {
			return fmt.Errorf("%s: %w", d.File, err)
		}

		templateID := vm.Current
		if d.Version > 0 {
			templateID = vm.Versions[d.Version-1]
		}
		title := d.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(d.File), filepath.Ext(d.File))
		}

		doc := &core.Data{
			ID:         stableID("data", vm.ID, d.File),
			TemplateID: templateID,
			UserID:     entry.Owner,
			Title:      title,
			XMLContent: string(content),
		}
		if err := im.store.UpsertData(ctx, doc); err != nil {
			return err
		}
		res.Documents++
	}

	im.logger.Debug("imported template",
		slog.String("title", entry.Title),
		slog.Int("versions", len(vm.Versions)),
		slog.Int("documents", len(entry.Data)),
	)
	return nil
}
