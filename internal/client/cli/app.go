package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/photobatch/internal/client/client"
	"github.com/dmitrijs2005/photobatch/internal/client/config"
	"github.com/dmitrijs2005/photobatch/internal/client/coordinator"
	"github.com/dmitrijs2005/photobatch/internal/client/models"
	"github.com/dmitrijs2005/photobatch/internal/client/push"
	"github.com/dmitrijs2005/photobatch/internal/client/repositories/history"
	"github.com/dmitrijs2005/photobatch/internal/filex"
	"github.com/dmitrijs2005/photobatch/internal/logging"

	_ "modernc.org/sqlite"
)

// App is the one-shot batch upload command: queue the named files, submit
// them as a single batch and report per-file results when the job resolves.
type App struct {
	config *config.Config
	coord  *coordinator.Coordinator
	pushCh *push.Channel
	db     *sql.DB
	log    logging.Logger
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	tokens := client.StaticTokenProvider(c.AuthToken)

	var db *sql.DB
	var journal history.Repository
	if c.HistoryDBPath != "" {
		dir, err := filex.EnsureSubDir("data")
		if err != nil {
			return nil, err
		}
		db, err = history.Open(ctx, filepath.Join(dir, c.HistoryDBPath))
		if err != nil {
			// The journal is an extra; uploads work without it.
			log.Warn(ctx, "history database unavailable, journaling disabled", "error", err)
		} else {
			journal = history.NewSQLiteRepository(db)
		}
	}

	apiClient := client.NewHTTPClient(c.ServerEndpointAddr, tokens, c.PerFileTimeout, c.MaxTransferTimeout, log)
	pushCh := push.New(c.WSEndpointAddr, tokens, c.MaxReconnectAttempts, c.ReconnectBackoff, log)

	coord := coordinator.New(apiClient, pushCh, journal, coordinator.Config{
		ConnectWaitTimeout: c.ConnectWaitTimeout,
		PollInterval:       c.PollInterval,
	}, log)

	return &App{config: c, coord: coord, pushCh: pushCh, db: db, log: log}, nil
}

// Run queues the named files, starts the batch and blocks until every item
// reaches a terminal state or ctx is cancelled. Returns an error if any file
// failed.
func (a *App) Run(ctx context.Context, paths []string) error {
	defer a.Close()

	if len(paths) == 0 {
		return fmt.Errorf("no files to upload")
	}

	for _, path := range paths {
		if err := a.addFile(path); err != nil {
			return err
		}
	}

	if err := a.coord.Start(ctx); err != nil {
		a.printResults()
		return fmt.Errorf("batch upload: %w", err)
	}

	if err := a.waitForCompletion(ctx); err != nil {
		return err
	}

	failed := a.printResults()
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func (a *App) addFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = a.coord.Add(models.FileMetadata{
		Name:        filepath.Base(path),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, data)
	if err != nil {
		return fmt.Errorf("queue %s: %w", path, err)
	}
	return nil
}

func (a *App) waitForCompletion(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			done := true
			for _, item := range a.coord.Items() {
				if !item.Status.Terminal() {
					done = false
					break
				}
			}
			if done {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// printResults writes one line per item and returns the failure count.
func (a *App) printResults() int {
	failed := 0
	for _, item := range a.coord.Items() {
		switch item.Status {
		case models.StatusCompleted:
			fmt.Printf("%-40s ok      %s\n", item.Meta.Name, item.ServerPhotoID)
		case models.StatusFailed:
			failed++
			fmt.Printf("%-40s failed  %s\n", item.Meta.Name, item.Error)
		default:
			failed++
			fmt.Printf("%-40s %s (%d%%)\n", item.Meta.Name, item.Status, item.Progress)
		}
	}
	return failed
}

func (a *App) Close() {
	a.pushCh.Close()
	if a.db != nil {
		_ = a.db.Close()
	}
}
