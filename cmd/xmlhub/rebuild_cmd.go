package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/config"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/gitclient"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/indexer"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/renderer"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/version"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/versiongate"
	"github.com/spf13/cobra"
)

// buildVersion is overwritten at link time via
// -ldflags "-X main.buildVersion=...". The fallback must itself parse
// under version.ParseGitVersion's git-describe grammar (a bare "-dev"
// suffix does not; see SPEC_FULL.md §4.D).
var buildVersion = "0.0.0"

var (
	rebuildBasePath       string
	rebuildAllowNonBeast2 bool
	rebuildNoVersionCheck bool
	rebuildOutDir         string
	rebuildTitle          string
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-scan the working tree and regenerate index.html and index.md",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRebuild(cmd)
	},
}

func init() {
	rebuildCmd.Flags().StringVar(&rebuildBasePath, "base-path", "", "directory to index (defaults to config index.base-path)")
	rebuildCmd.Flags().BoolVar(&rebuildAllowNonBeast2, "allow-non-beast2", false, "don't error on non-BEAST2 root version attributes")
	rebuildCmd.Flags().BoolVar(&rebuildNoVersionCheck, "no-version-check", false, "skip the write-time version gate")
	rebuildCmd.Flags().StringVar(&rebuildOutDir, "out", "", "output directory (defaults to base-path)")
	rebuildCmd.Flags().StringVar(&rebuildTitle, "title", "XML analysis index", "title embedded in the generated pages")
}

func runRebuild(cmd *cobra.Command) error {
	ctx := cmd.Context()

	basePath := rebuildBasePath
	if basePath == "" {
		basePath = config.GetString("index.base-path")
	}
	if basePath == "" {
		basePath = "."
	}
	allowNonV2 := rebuildAllowNonBeast2 || config.GetBool("index.allow-non-beast2")
	noVersionCheck := rebuildNoVersionCheck || config.GetBool("index.no-version-check")
	outDir := rebuildOutDir
	if outDir == "" {
		outDir = basePath
	}

	git := gitclient.New(basePath)

	running, err := version.ParseGitVersion(buildVersion)
	if err != nil {
		return fmt.Errorf("parsing build version %q: %w", buildVersion, err)
	}

	htmlPath := filepath.Join(outDir, "index.html")
	mdPath := filepath.Join(outDir, "index.md")

	if !noVersionCheck {
		result, err := versiongate.Check(ctx, git, []string{htmlPath, mdPath}, running)
		if err != nil {
			return fmt.Errorf("version gate: %w", err)
		}
		switch result.Decision {
		case versiongate.Refuse:
			return fmt.Errorf("version gate refused the write: %s", result.Detail)
		case versiongate.Warn:
			slog.Warn("version gate warning", "detail", result.Detail)
		}
	}

	out, err := indexer.Run(ctx, git, indexer.Options{
		BasePath:   basePath,
		AllowNonV2: allowNonV2,
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", basePath, err)
	}

	trashDir := filepath.Join(outDir, ".xmlhub-trash")
	if err := renderer.Render(out.Overview, renderer.Options{
		OutDir:    outDir,
		TrashDir:  trashDir,
		Title:     rebuildTitle,
		Generated: time.Now(),
	}); err != nil {
		return fmt.Errorf("rendering output: %w", err)
	}

	slog.Info("rebuild complete",
		"files", len(out.Files),
		"errors", len(out.Errored),
		"out_dir", outDir,
	)
	if len(out.Errored) > 0 {
		for _, e := range out.Errored {
			slog.Warn("file errored", "path", e.RelativePath, "errors", e.Errors)
		}
	}
	return nil
}
