package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loganbvh/ssm-analyze/internal/testutil"
)

// setupCatalog opens a catalog over a fresh temp data root with one scan
// and one touchdown dataset staged.
func setupCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteScanFixture(t, root, "data/scans/scan0001", "pos", "pos")
	testutil.WriteTouchdownFixture(t, root, "data/touchdowns/td0001")

	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"), root)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.MigrateUp(filepath.Join("..", "..", "migrations")))
	return c, root
}

func TestOpenDefersSchemaToMigrations(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	var n int
	row := c.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'datasets'`)
	require.NoError(t, row.Scan(&n))
	assert.Equal(t, 0, n, "Open should not create tables on its own")

	require.NoError(t, c.MigrateUp(filepath.Join("..", "..", "migrations")))
	row = c.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'datasets'`)
	require.NoError(t, row.Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRescanIndexesDatasets(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	n, err := c.Rescan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Ordered by location.
	assert.Equal(t, "data/scans/scan0001", entries[0].Location)
	assert.Equal(t, "scan", entries[0].Kind)
	assert.Equal(t, []string{"mag", "x", "y"}, entries[0].Arrays)
}

func TestRescanStableIDs(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	_, err := c.Rescan(ctx)
	require.NoError(t, err)
	first, err := c.List(ctx, "")
	require.NoError(t, err)
	_, err = c.Rescan(ctx)
	require.NoError(t, err)
	second, err := c.List(ctx, "")
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID,
			"ID for %s changed across rescans", first[i].Location)
	}
	assert.Equal(t, first[0].ID, ID("data/scans/scan0001"))
}

func TestRescanPrunesMissing(t *testing.T) {
	c, root := setupCatalog(t)
	ctx := context.Background()

	_, err := c.Rescan(ctx)
	require.NoError(t, err)
	tdID := ID("data/touchdowns/td0001")
	_, err = c.Get(ctx, tdID)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "data/touchdowns/td0001")))
	n, err := c.Rescan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.Get(ctx, tdID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetNotFound(t *testing.T) {
	c, _ := setupCatalog(t)
	_, err := c.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListKindFilter(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	_, err := c.Rescan(ctx)
	require.NoError(t, err)
	scans, err := c.List(ctx, "scan")
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "scan", scans[0].Kind)
}

func TestLoadEntry(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	_, err := c.Rescan(ctx)
	require.NoError(t, err)
	ds, err := c.Load(ctx, ID("data/scans/scan0001"))
	require.NoError(t, err)
	assert.True(t, ds.Has("mag"), "loaded dataset is missing the mag array")
}

func TestRescanSkipsBrokenManifest(t *testing.T) {
	c, root := setupCatalog(t)
	ctx := context.Background()

	bad := filepath.Join(root, "data/broken")
	require.NoError(t, os.MkdirAll(bad, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "snapshot.json"), []byte("{"), 0644))

	n, err := c.Rescan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "broken manifest should be skipped")
}
