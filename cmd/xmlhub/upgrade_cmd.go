package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/config"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/upgrade"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/version"
	"github.com/spf13/cobra"
)

var (
	forceReinstall bool
	forceDowngrade bool
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Check the signed binaries channel and install a newer build if available",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		opts := upgrade.Options{
			StateDir:        filepath.Join(home, ".xmlhub", "upgrade"),
			BinariesRepoURL: config.GetString("upgrade.binaries-repo"),
			TrustedKeysFile: config.GetString("upgrade.trusted-keys-file"),
			ForceReinstall:  forceReinstall,
			ForceDowngrade:  forceDowngrade,
		}
		if opts.BinariesRepoURL == "" {
			return fmt.Errorf("upgrade.binaries-repo is not configured")
		}

		running, err := version.ParseGitVersion(buildVersion)
		if err != nil {
			return fmt.Errorf("parsing running version %q: %w", buildVersion, err)
		}

		plan, err := upgrade.Check(opts, running)
		if err != nil {
			return fmt.Errorf("checking for upgrade: %w", err)
		}

		if jsonOut {
			fmt.Printf("{\"running\":%q,\"available\":%q,\"policy\":%q,\"will_install\":%v}\n",
				plan.Running, plan.AvailableVer, plan.Policy, plan.Policy.ShouldInstall())
			if !plan.Policy.ShouldInstall() {
				return nil
			}
			return upgrade.Install(opts, plan)
		}

		ok, err := upgrade.Confirm(plan)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("aborted")
			return nil
		}
		if err := upgrade.Install(opts, plan); err != nil {
			return fmt.Errorf("installing: %w", err)
		}
		fmt.Println("installed", plan.AvailableVer)
		return nil
	},
}

func init() {
	upgradeCmd.Flags().BoolVar(&forceReinstall, "force-reinstall", false, "reinstall even if the available version equals the running one")
	upgradeCmd.Flags().BoolVar(&forceDowngrade, "force-downgrade", false, "install even if the available version is older than the running one")
}
