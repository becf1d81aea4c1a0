package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/release"
	"github.com/spf13/cobra"
)

var (
	releaseBinariesDir string
	releaseBranch      string
	releaseUnchanged   bool
	releaseSignTag     bool
	releaseKeyPath     string
	releaseDryRun      bool
	releaseTargetOS    string
	releaseTargetArch  string
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Build and publish a signed release into the binaries repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd)
	},
}

func init() {
	releaseCmd.Flags().StringVar(&releaseBinariesDir, "binaries-repo-dir", "", "path to the sibling binaries repository clone")
	releaseCmd.Flags().StringVar(&releaseBranch, "branch", "", "expected source branch (empty = don't check)")
	releaseCmd.Flags().BoolVar(&releaseUnchanged, "unchanged-output", false, "patch-bump instead of minor-bump (output format didn't change)")
	releaseCmd.Flags().BoolVar(&releaseSignTag, "sign-tag", false, "create a signed (not merely annotated) tag")
	releaseCmd.Flags().StringVar(&releaseKeyPath, "key", "", "path to the private key envelope used to sign the published app info")
	releaseCmd.Flags().BoolVar(&releaseDryRun, "dry-run", false, "print the step sequence without executing it")
	releaseCmd.Flags().StringVar(&releaseTargetOS, "target-os", "", "GOOS to cross-compile for (defaults to the build host's)")
	releaseCmd.Flags().StringVar(&releaseTargetArch, "target-arch", "", "GOARCH to cross-compile for (defaults to the build host's)")
}

func runRelease(cmd *cobra.Command) error {
	ctx := cmd.Context()
	wd, err := workingDir()
	if err != nil {
		return err
	}
	opts := release.Options{
		SourceDir:       wd,
		BinariesRepoDir: releaseBinariesDir,
		Branch:          releaseBranch,
		UnchangedOutput: releaseUnchanged,
		SignTag:         releaseSignTag,
		PrivateKeyPath:  releaseKeyPath,
		DryRun:          releaseDryRun,
		TargetOS:        releaseTargetOS,
		TargetArch:      releaseTargetArch,
	}
	steps, st := release.Build(opts)

	for _, step := range steps {
		rendered, err := glamour.Render(fmt.Sprintf("## %s\n\n%s", step.Name, step.Description), "dark")
		if err != nil {
			rendered = step.Description + "\n"
		}
		fmt.Print(rendered)

		if releaseDryRun {
			continue
		}

		proceed := true
		var choice string
		form := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title("Run this step?").
				Options(huh.NewOption("execute", "execute"), huh.NewOption("skip", "skip"), huh.NewOption("abort", "abort")).
				Value(&choice),
		))
		if err := form.Run(); err != nil {
			return fmt.Errorf("step prompt: %w", err)
		}
		switch choice {
		case "skip":
			proceed = false
		case "abort":
			return fmt.Errorf("release aborted at step %s", step.Name)
		}
		if !proceed {
			continue
		}
		if err := step.Run(ctx, st); err != nil {
			return fmt.Errorf("step %s failed: %w", step.Name, err)
		}
	}
	return nil
}
