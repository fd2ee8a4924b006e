package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photobatch/internal/client/config"
	"github.com/dmitrijs2005/photobatch/internal/client/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HistoryDBPath = "" // keep the test off the filesystem

	app, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func TestApp_AddFile(t *testing.T) {
	app := newTestApp(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "holiday.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a jpeg"), 0o600))

	require.NoError(t, app.addFile(path))

	items := app.coord.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "holiday.jpg", items[0].Meta.Name)
	assert.Equal(t, "image/jpeg", items[0].Meta.ContentType)
	assert.Equal(t, int64(len("not really a jpeg")), items[0].Meta.Size)
	assert.Equal(t, models.StatusQueued, items[0].Status)
}

func TestApp_AddFileUnknownExtension(t *testing.T) {
	app := newTestApp(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "photo.raw42")
	require.NoError(t, os.WriteFile(path, []byte("raw bytes"), 0o600))

	require.NoError(t, app.addFile(path))

	items := app.coord.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "application/octet-stream", items[0].Meta.ContentType)
}

func TestApp_AddFileMissing(t *testing.T) {
	app := newTestApp(t)

	err := app.addFile(filepath.Join(t.TempDir(), "nope.jpg"))
	require.Error(t, err)
	assert.Empty(t, app.coord.Items())
}

func TestApp_RunWithoutFiles(t *testing.T) {
	app := newTestApp(t)

	err := app.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files")
}
