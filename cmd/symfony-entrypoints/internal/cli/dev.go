package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lhapaipai/vite-plugin-symfony/internal/log"
	"github.com/lhapaipai/vite-plugin-symfony/pkg/entrypoints"
)

var devFlags struct {
	listen string
	out    string
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Write a manifest pointing at the dev server",
	Long: `Writes the entrypoints manifest used while the dev server runs. Every
entrypoint is served by the dev server, so the manifest lists one URL per
entry and no preloads or integrity hashes.

The dev server origin is, in order of precedence: server.origin_override,
server.origin, then a URL built from the listen address and the HMR settings.`,
	RunE: runDev,
}

func init() {
	devCmd.Flags().StringVar(&devFlags.listen, "listen", "",
		"Address the dev server listens on (default: server.listen)")
	devCmd.Flags().StringVarP(&devFlags.out, "out", "o", "",
		"Manifest path (default: <out_dir>/.vite/entrypoints.json)")

	rootCmd.AddCommand(devCmd)
}

func runDev(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	listen := cfg.Server.Listen
	if devFlags.listen != "" {
		listen = devFlags.listen
	}
	origin, err := entrypoints.ResolveDevOrigin(listen, cfg.ServerOptions())
	if err != nil {
		return err
	}

	path := cfg.ManifestPath()
	if devFlags.out != "" {
		path = absFrom(cfg.Root, devFlags.out)
	}
	m := entrypoints.DevManifest(catalog, cfg.Base, origin, manifestVersion())
	if err := entrypoints.WriteManifest(path, m); err != nil {
		return err
	}
	log.Info("dev manifest written", "path", path, "origin", origin, "entries", len(m.EntryPoints))

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (dev server %s)\n", relFrom(cfg.Root, path), origin)
	return nil
}
