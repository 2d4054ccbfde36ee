package gather

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Snapshots writes fetched payloads to disk as pretty-printed JSON and
// reads item snapshots back for offline reuse.
type Snapshots struct {
	dir string
}

func NewSnapshots(dir string) *Snapshots {
	return &Snapshots{dir: dir}
}

// Save writes one payload under name.json, overwriting any previous
// snapshot of the same name.
func (s *Snapshots) Save(name string, data any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name+".json")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	return nil
}

// SaveItems writes the project item list plus one snapshot per item, so
// items later removed from the source survive as individual files.
func (s *Snapshots) SaveItems(projectID ID, items []Item) error {
	if err := s.Save("project_"+string(projectID)+"_items", items); err != nil {
		return err
	}
	for i := range items {
		name := "project_" + string(projectID) + "_item_" + string(items[i].ID)
		if err := s.Save(name, items[i]); err != nil {
			return err
		}
	}
	return nil
}

// LoadItems reads all per-item snapshots of a project. A missing snapshot
// directory is not an error; unreadable individual files are skipped.
func (s *Snapshots) LoadItems(projectID ID) ([]Item, error) {
	pattern := filepath.Join(s.dir, "project_"+string(projectID)+"_item_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list item snapshots: %w", err)
	}
	var items []Item
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read snapshot %s: %w", filepath.Base(path), err)
		}
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if item.ID != "" {
			items = append(items, item)
		}
	}
	return items, nil
}
