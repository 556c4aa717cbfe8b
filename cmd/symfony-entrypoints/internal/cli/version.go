package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lhapaipai/vite-plugin-symfony/pkg/entrypoints"
)

// bundlePackage is the Composer package that reads the manifest.
const bundlePackage = "pentatrion/vite-bundle"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "symfony-entrypoints %s (commit: %s)\n", Version, GitCommit)

		cfg, err := loadConfig()
		if err != nil {
			return nil
		}
		if v, ok := bundleVersion(cfg.Root); ok {
			fmt.Fprintf(out, "%s %s\n", bundlePackage, v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// manifestVersion is the version stamped into manifests.
func manifestVersion() entrypoints.Version {
	v := strings.TrimPrefix(Version, "v")
	if v == "" || v[0] < '0' || v[0] > '9' {
		return entrypoints.ShortVersion(Version)
	}
	return entrypoints.ParseVersion(v)
}

type composerLock struct {
	Packages    []composerPackage `json:"packages"`
	PackagesDev []composerPackage `json:"packages-dev"`
}

type composerPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// bundleVersion reads the installed bundle version from composer.lock.
func bundleVersion(root string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(root, "composer.lock"))
	if err != nil {
		return "", false
	}
	var lock composerLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return "", false
	}
	for _, p := range append(lock.Packages, lock.PackagesDev...) {
		if p.Name == bundlePackage {
			return p.Version, true
		}
	}
	return "", false
}
