// Package catalog indexes dataset directories in SQLite so the HTTP API
// and CLIs can address them by stable IDs instead of filesystem paths.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/loganbvh/ssm-analyze/internal/dataset"
	"github.com/loganbvh/ssm-analyze/internal/security"
)

// ErrNotFound reports a dataset ID with no catalog row.
var ErrNotFound = errors.New("dataset not found")

// idNamespace seeds the deterministic dataset IDs. Rescans and fresh
// databases assign the same ID to the same location.
var idNamespace = uuid.MustParse("8f2d9a46-5c1e-4f6a-9b0d-3e7c21a4d5b8")

type Catalog struct {
	*sql.DB
	root   string
	logger logrus.FieldLogger
}

// Entry is one indexed dataset.
type Entry struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Arrays    []string  `json:"arrays"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Open opens (creating if needed) the catalog database for datasets under
// root. The schema is owned by the migrations directory; run MigrateUp
// before touching the index.
func Open(path, root string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		DB:     db,
		root:   root,
		logger: logrus.WithField("tag", "Catalog"),
	}, nil
}

// Root returns the directory Rescan walks.
func (c *Catalog) Root() string { return c.root }

// ID derives the stable dataset ID for a location.
func ID(location string) string {
	return uuid.NewSHA1(idNamespace, []byte(location)).String()
}

// Rescan walks the data root for dataset manifests and refreshes the index.
// Rows whose directories disappeared are removed. It returns how many
// datasets are indexed afterwards.
func (c *Catalog) Rescan(ctx context.Context) (int, error) {
	seen := make(map[string]bool)
	count := 0

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || d.Name() != dataset.ManifestName {
			return nil
		}
		dir := filepath.Dir(path)
		if err := security.ValidatePathWithinDirectory(dir, c.root); err != nil {
			c.logger.WithField("dir", dir).WithError(err).Warn("skipping dataset outside data root")
			return nil
		}
		m, err := dataset.ReadManifest(dir)
		if err != nil {
			c.logger.WithField("dir", dir).WithError(err).Warn("skipping unreadable manifest")
			return nil
		}

		names := make([]string, 0, len(m.Arrays))
		for name := range m.Arrays {
			names = append(names, name)
		}
		sort.Strings(names)
		arrays, err := json.Marshal(names)
		if err != nil {
			return err
		}

		id := ID(m.Location)
		_, err = c.ExecContext(ctx, `
			INSERT INTO datasets (id, location, path, kind, arrays, indexed_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(location) DO UPDATE SET
				path = excluded.path,
				kind = excluded.kind,
				arrays = excluded.arrays,
				indexed_at = CURRENT_TIMESTAMP`,
			id, m.Location, dir, m.Kind, string(arrays))
		if err != nil {
			return fmt.Errorf("index %s: %w", m.Location, err)
		}
		seen[id] = true
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := c.prune(ctx, seen); err != nil {
		return 0, err
	}
	c.logger.WithField("count", count).Info("rescan complete")
	return count, nil
}

// prune drops rows whose dataset directories no longer exist on disk.
func (c *Catalog) prune(ctx context.Context, seen map[string]bool) error {
	rows, err := c.QueryContext(ctx, "SELECT id FROM datasets")
	if err != nil {
		return err
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := c.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", id); err != nil {
			return err
		}
	}
	return nil
}

// List returns indexed datasets ordered by location, optionally filtered
// by kind.
func (c *Catalog) List(ctx context.Context, kind string) ([]Entry, error) {
	query := "SELECT id, location, path, kind, arrays, indexed_at FROM datasets ORDER BY location"
	args := []any{}
	if kind != "" {
		query = "SELECT id, location, path, kind, arrays, indexed_at FROM datasets WHERE kind = ? ORDER BY location"
		args = append(args, kind)
	}
	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Get looks up one dataset by ID.
func (c *Catalog) Get(ctx context.Context, id string) (Entry, error) {
	row := c.QueryRowContext(ctx,
		"SELECT id, location, path, kind, arrays, indexed_at FROM datasets WHERE id = ?", id)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Load opens the dataset behind a catalog entry.
func (c *Catalog) Load(ctx context.Context, id string) (*dataset.Dataset, error) {
	e, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dataset.Load(e.Path)
}

func scanEntry(scan func(...any) error) (Entry, error) {
	var e Entry
	var arrays string
	if err := scan(&e.ID, &e.Location, &e.Path, &e.Kind, &arrays, &e.IndexedAt); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(arrays), &e.Arrays); err != nil {
		return Entry{}, fmt.Errorf("decode arrays for %s: %w", e.Location, err)
	}
	return e, nil
}
