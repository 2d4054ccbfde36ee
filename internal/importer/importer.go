// Package importer drives a full import run: it resolves the source
// project, orders items by template pass, and routes each item through
// the mapping spec into the target store.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contentforge/gathersync/internal/config"
	"github.com/contentforge/gathersync/internal/files"
	"github.com/contentforge/gathersync/internal/gather"
	"github.com/contentforge/gathersync/pkg/store"
)

// Source is the slice of the source client the importer consumes.
type Source interface {
	ProjectByName(ctx context.Context, name string) (gather.Project, error)
	Items(ctx context.Context, projectID gather.ID) ([]gather.Item, error)
	SavedItems(projectID gather.ID) ([]gather.Item, error)
	Templates(ctx context.Context, projectID gather.ID) ([]gather.Template, error)
	Statuses(ctx context.Context, projectID gather.ID) ([]gather.Status, error)
	FilesByItem(ctx context.Context, itemID gather.ID) ([]gather.FileRef, error)
}

// FileFetcher downloads one remote file store object, returning the local
// path written.
type FileFetcher interface {
	Download(ctx context.Context, key, filename string) (string, error)
}

// Importer performs one import run against an open store.
type Importer struct {
	cfg    *config.Config
	source Source
	store  store.Store
	fetch  FileFetcher
	logger *slog.Logger

	report Report
}

// New wires an importer. The store must already be connected and migrated.
func New(cfg *config.Config, source Source, st store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	imp := &Importer{
		cfg:    cfg,
		source: source,
		store:  st,
		logger: logger,
		report: NewReport(),
	}
	if cfg.DownloadFiles {
		imp.fetch = files.NewDownloader(cfg.FileStoreURL, cfg.AssetsDir, cfg.OverwriteFiles)
	}
	return imp
}

// SetFetcher replaces the file downloader.
func (imp *Importer) SetFetcher(f FileFetcher) { imp.fetch = f }

// Run executes the import and returns the run report. Per-item failures
// are counted and logged, not fatal; only setup failures abort the run.
func (imp *Importer) Run(ctx context.Context) (*Report, error) {
	project, err := imp.source.ProjectByName(ctx, imp.cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project: %w", err)
	}
	imp.logger.Info("resolved source project", "project", project.Name, "id", project.ID)

	statusNames := make(map[gather.ID]string)
	statuses, err := imp.source.Statuses(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statuses: %w", err)
	}
	for _, s := range statuses {
		statusNames[s.ID] = s.Name
	}

	templateNames := make(map[gather.ID]string)
	var templateOrder []string
	templates, err := imp.source.Templates(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch templates: %w", err)
	}
	for _, t := range templates {
		templateNames[t.ID] = t.Name
		templateOrder = append(templateOrder, t.Name)
	}

	items, err := imp.source.Items(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	if imp.cfg.UseSavedSnapshots {
		items = mergeSavedItems(items, project.ID, imp.source, imp.logger)
	}
	imp.logger.Info("fetched items", "count", len(items))

	processed := make(map[gather.ID]bool, len(items))
	for _, pass := range imp.cfg.Spec.Passes(templateOrder) {
		for i := range items {
			item := &items[i]
			if processed[item.ID] {
				continue
			}
			name, known := templateNames[item.TemplateID]
			if !known {
				continue
			}
			if name != pass {
				continue
			}
			processed[item.ID] = true
			imp.processItem(ctx, item, name, statusNames)
		}
	}

	for i := range items {
		if !processed[items[i].ID] {
			imp.report.Unmapped++
		}
	}

	return &imp.report, nil
}

// mergeSavedItems appends snapshotted items the live fetch no longer
// returned, keeping deleted-at-source content importable.
func mergeSavedItems(items []gather.Item, projectID gather.ID, source Source, logger *slog.Logger) []gather.Item {
	saved, err := source.SavedItems(projectID)
	if err != nil {
		logger.Warn("failed to load saved items", "error", err)
		return items
	}
	seen := make(map[gather.ID]bool, len(items))
	for i := range items {
		seen[items[i].ID] = true
	}
	for i := range saved {
		if !seen[saved[i].ID] {
			items = append(items, saved[i])
		}
	}
	return items
}
