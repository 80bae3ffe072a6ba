package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/rename-agent/internal/cli"
	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/config"
	"github.com/Veraticus/rename-agent/internal/engine"
	"github.com/Veraticus/rename-agent/internal/service"
	"github.com/Veraticus/rename-agent/internal/storage"
)

func renameCmd() *cobra.Command {
	var (
		manifestPath string
		dest         string
		onCollision  string
		workers      int
		dryRun       bool
		noBackup     bool
		quiet        bool
	)

	cmd := &cobra.Command{
		Use:   "rename [files...]",
		Short: "Rename documents described by a classification manifest",
		Long: `Rename a batch of documents. Each file's type and fields come from a YAML manifest
written by the classification step:

  documents:
    - file: scan001.pdf
      type: receipt
      fields:
        Date: 2024-03-15
        Merchant: Amazon
        Amount: 19.99

Without file arguments every document in the manifest is processed. Each outcome
is recorded in history; applied renames count as pattern usage.`,
		Example: `  # Preview the batch without touching any file
  renamer rename --manifest inbox.yaml --dry-run

  # Move renamed files into an archive folder
  renamer rename --manifest inbox.yaml --dest ~/Documents/Archive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			manifest, err := engine.LoadManifest(config.ExpandPath(manifestPath))
			if err != nil {
				return common.NewUserError("Could not load manifest "+manifestPath, err)
			}

			paths := manifest.Paths()
			if len(args) > 0 {
				paths = make([]string, 0, len(args))
				for _, arg := range args {
					abs, absErr := filepath.Abs(arg)
					if absErr != nil {
						return fmt.Errorf("failed to resolve %s: %w", arg, absErr)
					}
					paths = append(paths, abs)
				}
			}
			if len(paths) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing to rename."))
				return nil
			}

			policy := appConfig.OnCollision
			if cmd.Flags().Changed("on-collision") {
				policy = onCollision
			}
			collision, err := engine.ParseCollisionPolicy(policy)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("workers") {
				workers = appConfig.Workers
			}

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			if !dryRun && !noBackup {
				autoBackup(cmd, appConfig)
			}

			opts := engine.Options{
				DestDir:     config.ExpandPath(dest),
				OnCollision: collision,
				Workers:     workers,
				DryRun:      dryRun,
				Retry:       service.RetryOptions{MaxAttempts: appConfig.RetryAttempts},
			}
			if !quiet {
				bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(paths), "Renaming documents...")
				opts.Progress = cli.ProgressFunc(bar)
			}

			executor := engine.NewExecutor(st.newEngine(appConfig), manifest)
			summary, runErr := executor.Run(ctx, paths, opts)

			out := cmd.OutOrStdout()
			if summary != nil {
				for _, result := range summary.Results {
					fmt.Fprintln(out, cli.FormatResult(result))
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, cli.RenderSummary(summary))
			}

			if runErr != nil {
				if ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
					return fmt.Errorf("rename interrupted; finished documents are recorded: %w", runErr)
				}
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "classification manifest (YAML)")
	cmd.Flags().StringVar(&dest, "dest", "", "move renamed files into this directory")
	cmd.Flags().StringVar(&onCollision, "on-collision", "suffix", "when the name is taken: suffix or skip")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "documents classified in parallel")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "record proposals without renaming")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip the automatic backup before renaming")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

// autoBackup snapshots the stores before a batch that changes them. A failed
// backup is reported but does not block the run.
func autoBackup(cmd *cobra.Command, cfg config.Config) {
	manager, err := storage.NewCheckpointManager(cfg.DataDir)
	if err != nil {
		slog.Warn("Failed to open backup manager", "error", err)
		return
	}

	info, err := manager.AutoCheckpoint(cmd.Context(), "rename")
	if err != nil {
		slog.Warn("Failed to create automatic backup", "error", err)
		return
	}
	slog.Debug("Created automatic backup", "id", info.ID)
}
