package main

import (
	"fmt"
	"time"

	"github.com/arqaam/mangactl/internal/api"
	"github.com/arqaam/mangactl/internal/batch"
	"github.com/arqaam/mangactl/internal/config"
	"github.com/arqaam/mangactl/internal/httpclient"
	"github.com/arqaam/mangactl/internal/job"
	"github.com/arqaam/mangactl/internal/logger"
	"github.com/spf13/cobra"
)

type uploadOptions struct {
	number      string
	title       string
	releaseDate string
	logFilePath string
	allowEnv    bool
	envOnly     bool
	debug       bool
}

func newUploadCmd() *cobra.Command {
	opts := uploadOptions{}
	cmd := &cobra.Command{
		Use:   "upload <manga-id> <archive>...",
		Short: "Upload chapter archives to a manga",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&opts.number, "number", "", "Chapter number override (single archive only)")
	cmd.Flags().StringVar(&opts.title, "title", "", "Chapter title override (single archive only)")
	cmd.Flags().StringVar(&opts.releaseDate, "release-date", "", "Release date for all chapters (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading the API token from MANGACTL_TOKEN")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only the environment variable for the API token")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	return cmd
}

func runUpload(cmd *cobra.Command, args []string, opts *uploadOptions) error {
	mangaID, archives := args[0], args[1:]
	if len(archives) > 1 && (opts.number != "" || opts.title != "") {
		return fmt.Errorf("--number and --title apply to a single archive, got %d", len(archives))
	}

	if err := setupLogging(opts.debug, opts.logFilePath); err != nil {
		return err
	}

	for _, path := range archives {
		if err := api.ValidateArchivePath(path); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token, source, err := resolveToken(opts.allowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	logger.Info("Using API token", "source", source)

	items := make([]*batch.Item, 0, len(archives))
	rejected := 0
	for _, path := range archives {
		it := batch.NewItem(path)
		if opts.number != "" {
			it.Number = opts.number
		}
		if opts.title != "" {
			it.Title = opts.title
		}
		if err := it.CountImages(); err != nil {
			logger.Warn("Archive rejected", "path", path, "error", err)
			rejected++
			continue
		}
		logger.Info("Chapter queued", "path", path, "chapter", it.Number, "pages", it.ImageCount)
		items = append(items, it)
	}
	if len(items) == 0 {
		return fmt.Errorf("no readable archives to upload")
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.AssetBaseURL, token, httpclient.NewClient(cfg.API.Timeout))

	startTime := time.Now()
	lastLogged := map[string]int{}
	orch := &batch.Orchestrator{
		Client:      client,
		MangaID:     mangaID,
		ReleaseDate: opts.releaseDate,
		Interval:    cfg.Poll.ChapterUpload,
		MaxWait:     cfg.Poll.MaxWait,
		OnUpdate: func(it *batch.Item, s job.Snapshot) {
			if s.Overall/10 > lastLogged[it.ID]/10 || s.Status == job.StatusSuccess {
				logger.Info("Upload progress", "chapter", it.Number, "percent", s.Overall, "status", s.Message)
			}
			lastLogged[it.ID] = s.Overall
		},
	}

	ctx, stop := signalContext()
	defer stop()
	res, runErr := orch.RunAll(ctx, items)

	logger.Info("Batch finished",
		"succeeded", res.Succeeded,
		"failed", res.Errored,
		"duration", time.Since(startTime).Round(time.Second).String())

	if runErr != nil {
		if ctx.Err() != nil {
			logger.Warn("Batch canceled; submitted jobs keep running on the server")
		}
		return runErr
	}
	if failed := res.Failed(); len(failed) > 0 || rejected > 0 {
		for _, it := range failed {
			fmt.Fprintf(cmd.OutOrStdout(), "failed: %s (chapter %s): %v\n", it.Path, it.Number, it.Err)
		}
		return fmt.Errorf("%d of %d chapters failed; re-run with the listed archives to retry", len(failed)+rejected, len(items)+rejected)
	}
	return nil
}
