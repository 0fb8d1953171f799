package main

import (
	"fmt"

	"github.com/arqaam/mangactl/internal/api"
	"github.com/arqaam/mangactl/internal/config"
	"github.com/arqaam/mangactl/internal/httpclient"
	"github.com/arqaam/mangactl/internal/job"
	"github.com/arqaam/mangactl/internal/logger"
	"github.com/arqaam/mangactl/internal/translation"
	"github.com/spf13/cobra"
)

type translateOptions struct {
	publish     bool
	mangaID     string
	chapter     string
	title       string
	releaseDate string
	yes         bool
	logFilePath string
	allowEnv    bool
	envOnly     bool
	debug       bool
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <archive>",
		Short: "Translate a chapter archive and preview the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args[0], &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Publish the translated chapter after previewing")
	cmd.Flags().StringVar(&opts.mangaID, "manga", "", "Target manga id (required with --publish)")
	cmd.Flags().StringVar(&opts.chapter, "chapter", "", "Chapter number (required with --publish)")
	cmd.Flags().StringVar(&opts.title, "title", "", "Chapter title")
	cmd.Flags().StringVar(&opts.releaseDate, "release-date", "", "Release date (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Publish without asking for confirmation")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading the API token from MANGACTL_TOKEN")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only the environment variable for the API token")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	return cmd
}

func runTranslate(cmd *cobra.Command, archivePath string, opts *translateOptions) error {
	if opts.publish && (opts.mangaID == "" || opts.chapter == "") {
		return fmt.Errorf("--publish requires --manga and --chapter")
	}
	if err := api.ValidateArchivePath(archivePath); err != nil {
		return err
	}

	if err := setupLogging(opts.debug, opts.logFilePath); err != nil {
		return err
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

	client := api.NewClient(cfg.API.BaseURL, cfg.API.AssetBaseURL, token, httpclient.NewClient(cfg.API.Timeout))

	lastLogged := 0
	flow := &translation.Flow{
		Client:            client,
		TranslateInterval: cfg.Poll.Translation,
		PublishInterval:   cfg.Poll.Publish,
		MaxWait:           cfg.Poll.MaxWait,
		OnUpdate: func(s job.Snapshot) {
			if s.Overall/10 > lastLogged/10 || s.Terminal() {
				logger.Info("Progress", "percent", s.Overall, "status", s.Message)
			}
			lastLogged = s.Overall
		},
	}

	ctx, stop := signalContext()
	defer stop()

	preview, err := flow.Translate(ctx, archivePath)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Translation canceled; the server-side job keeps running", "error", err)
			return nil
		}
		return err
	}

	printPreview(cmd, preview)

	if !opts.publish {
		return nil
	}
	question := fmt.Sprintf("Publish chapter %s to manga %s?", opts.chapter, opts.mangaID)
	if !confirm(question, opts.yes) {
		logger.Info("Publish skipped")
		return nil
	}

	lastLogged = 0
	final, err := flow.Publish(ctx, api.PublishRequest{
		JobID:         preview.JobID,
		MangaID:       opts.mangaID,
		ChapterNumber: opts.chapter,
		Title:         opts.title,
		ReleaseDate:   opts.releaseDate,
	})
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Publish canceled; the server-side job keeps running", "error", err)
			return nil
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", final.Message)
	return nil
}

func printPreview(cmd *cobra.Command, preview *api.TranslationPreview) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Translated %d pages (job %s)\n", preview.TotalPages, preview.JobID)
	for i, img := range preview.TranslatedImages {
		original := ""
		if i < len(preview.OriginalImages) {
			original = preview.OriginalImages[i].URL
		}
		fmt.Fprintf(out, "  page %d: %s", img.PageNumber, img.URL)
		if original != "" {
			fmt.Fprintf(out, " (original: %s)", original)
		}
		fmt.Fprintln(out)
	}
}
