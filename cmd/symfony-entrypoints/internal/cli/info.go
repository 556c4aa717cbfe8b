package cli

import (
	"github.com/spf13/cobra"

	"github.com/lhapaipai/vite-plugin-symfony/pkg/entrypoints"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the resolved configuration as JSON",
	Long: `Prints the configuration after all layers were applied: the declared
entrypoints, output locations, dev server origin and the define table derived
from the exposed environment variables.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// InfoOutput is the JSON output format for symfony-entrypoints info.
type InfoOutput struct {
	Root        string            `json:"root"`
	Config      string            `json:"config,omitempty"`
	Mode        string            `json:"mode"`
	Base        string            `json:"base"`
	OutDir      string            `json:"out_dir"`
	Manifest    string            `json:"manifest"`
	Reports     []string          `json:"reports"`
	SRI         string            `json:"sri,omitempty"`
	External    []string          `json:"external,omitempty"`
	DevOrigin   string            `json:"dev_origin,omitempty"`
	Entrypoints []InfoEntry       `json:"entrypoints"`
	Defines     map[string]string `json:"defines"`
}

// InfoEntry describes one declared entrypoint.
type InfoEntry struct {
	Name string           `json:"name"`
	Path string           `json:"path"`
	Kind entrypoints.Kind `json:"kind"`
}

func runInfo(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	info := InfoOutput{
		Root:     cfg.Root,
		Config:   cfg.Path,
		Mode:     cfg.Mode,
		Base:     cfg.Base,
		OutDir:   cfg.OutputDir(),
		Manifest: cfg.ManifestPath(),
		Reports:  cfg.ReportPaths(),
		External: cfg.External,
		Defines:  cfg.Defines(),
	}
	if alg := cfg.SRI(); alg.Enabled() {
		info.SRI = string(alg)
	}
	if origin, err := entrypoints.ResolveDevOrigin(cfg.Server.Listen, cfg.ServerOptions()); err == nil {
		info.DevOrigin = origin
	}
	for _, e := range catalog.Entries() {
		info.Entrypoints = append(info.Entrypoints, InfoEntry{Name: e.Name, Path: e.RelPath, Kind: e.Kind})
	}
	return outputJSON(cmd.OutOrStdout(), info)
}
