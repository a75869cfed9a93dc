package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"pocketpages/internal/editor"
	"pocketpages/internal/event"
	mcpserver "pocketpages/internal/mcp"
	"pocketpages/internal/service"
)

const shutdownTimeout = 10 * time.Second

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve pages to an AI assistant over MCP (stdio)",
	Long: `Start the Model Context Protocol server on stdin/stdout.

The assistant edits one open page at a time with the same rules as the
editor: edits are grouped into undo steps after a pause, autosaved after
the same pause, and undo/redo restore the caret.

While serving, trashed pages past trash.retention_days are purged on
trash.purge_schedule, and writes by other processes to the open page are
reported to the client.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "pocketpages": {
        "command": "/path/to/pocketpages",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: withRuntime(runMCP),
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string, r *runtime) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	bus := &event.Bus{}

	ed := editor.New(r.store,
		editor.WithDelay(time.Duration(r.cfg.Editor.DebounceMs)*time.Millisecond),
		editor.WithHistoryLimit(r.cfg.Editor.HistoryLimit),
		editor.WithLogger(r.log),
		editor.WithEmitter(bus),
	)
	defer closeEditor(ed, r)

	trash := service.NewTrashService(r.store, r.cfg.Trash.RetentionDays, r.cfg.Trash.PurgeSchedule, bus, r.log)
	if err := trash.Start(ctx); err != nil {
		return err
	}
	defer trash.Stop()

	watcher := service.NewPageWatcher(r.store, r.versions, ed, r.watchDir, 0, bus, r.log)
	if err := watcher.Start(ctx); err != nil {
		r.log.Warn().Err(err).Msg("file watch unavailable, polling only")
		watcher = service.NewPageWatcher(r.store, r.versions, ed, "", 0, bus, r.log)
		if err := watcher.Start(ctx); err != nil {
			return err
		}
	}
	defer watcher.Stop()

	srv := mcpserver.New(mcpserver.Deps{
		Editor:   ed,
		Pages:    service.NewPageService(r.store, bus, r.log),
		Settings: r.settingsService(),
		Bus:      bus,
		Log:      r.log,
	})
	return srv.ServeStdio()
}

// closeEditor saves what the assistant left unsaved and waits for the writer.
func closeEditor(ed *editor.Editor, r *runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ed.FlushAndSave(ctx); err != nil && !errors.Is(err, editor.ErrNoPage) {
		r.log.Error().Err(err).Msg("final save failed")
	}
	if err := ed.Close(ctx); err != nil {
		r.log.Error().Err(err).Msg("close editor")
	}
}
