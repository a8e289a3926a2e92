package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/ledgerscript/library"
	"github.com/robinvdvleuten/ledgerscript/web"
)

type ServeCmd struct {
	File       string        `help:"Program file to serve, edit and run." arg:"" optional:""`
	Port       int           `help:"Port to listen on." default:"8080"`
	Create     bool          `help:"Automatically create the program file if it doesn't exist (no confirmation prompt)." short:"c"`
	ReadOnly   bool          `help:"Enable read-only mode (the program file cannot be saved)." short:"r"`
	Watch      bool          `help:"Reload the program file when it changes on disk." default:"true" negatable:""`
	RunTimeout time.Duration `help:"Maximum duration of a single run request (0 disables)." default:"30s"`
}

func (cmd *ServeCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := globals.setup(ctx, "serve")
	defer report()

	programFile := ""
	if cmd.File != "" {
		abs, err := filepath.Abs(cmd.File)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		if err := cmd.ensureFile(abs); err != nil {
			return err
		}
		programFile = abs
	}

	version := Version
	if version == "" {
		version = "dev"
	}
	commitSHA := CommitSHA
	if commitSHA == "" {
		commitSHA = "local"
	}

	server := web.NewWithVersion(cmd.Port, programFile, library.Default(), version, commitSHA)
	server.ReadOnly = cmd.ReadOnly
	server.WatchEnabled = cmd.Watch
	server.RunTimeout = cmd.RunTimeout

	printInfof(ctx.Stdout, "Starting server on %s:%d", server.Host, cmd.Port)
	if programFile != "" {
		printInfof(ctx.Stdout, "Serving program: %s", pathStyle.Render(programFile))
	}
	if cmd.ReadOnly {
		printInfof(ctx.Stdout, "Server running in READ-ONLY mode")
	}

	runCtx, stop := signal.NotifyContext(runCtx, os.Interrupt)
	defer stop()

	if err := server.Start(runCtx); err != nil && runCtx.Err() == nil {
		return err
	}
	if runCtx.Err() == context.Canceled {
		printInfof(ctx.Stdout, "Server stopped")
	}
	return nil
}

// ensureFile creates an empty program file when it is missing and the user
// agrees.
func (cmd *ServeCmd) ensureFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access file: %w", err)
	}

	shouldCreate := cmd.Create
	if !shouldCreate {
		confirmed, err := promptYesNo(fmt.Sprintf("File %q does not exist. Create it?", path))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		shouldCreate = confirmed
	}
	if !shouldCreate {
		return fmt.Errorf("file does not exist: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(""), 0600); err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}
