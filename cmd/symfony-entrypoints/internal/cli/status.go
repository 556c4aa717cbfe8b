package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	json bool
}

var statusCmd = &cobra.Command{
	Use:   "status [report...]",
	Short: "Show whether the manifest is stale",
	Long: `Compares the bundle reports and configuration against the state recorded
by the last successful 'symfony-entrypoints build' and lists what changed.

The --json flag outputs the result as JSON for scripting.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false,
		"Output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// StatusOutput is the JSON output format for symfony-entrypoints status.
type StatusOutput struct {
	Stale         bool     `json:"stale"`
	Manifest      string   `json:"manifest"`
	NewFiles      []string `json:"new_files,omitempty"`
	ModifiedFiles []string `json:"modified_files,omitempty"`
	DeletedFiles  []string `json:"deleted_files,omitempty"`
	ConfigChanged bool     `json:"config_changed,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	plan, err := newBuildPlan(cfg, args, "")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	manifest := relFrom(cfg.Root, plan.manifest)
	tracker := plan.tracker()

	if !tracker.HasState() {
		if statusFlags.json {
			return outputJSON(out, StatusOutput{Stale: true, Manifest: manifest, Error: "no state found"})
		}
		fmt.Fprintln(out, "No state found. Run 'symfony-entrypoints build' to create initial state.")
		return nil
	}

	cs, err := tracker.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to detect staleness: %w", err)
	}

	configChanged := tracker.ConfigChanged(plan.stamp())

	if statusFlags.json {
		return outputJSON(out, StatusOutput{
			Stale:         configChanged || !cs.IsEmpty(),
			Manifest:      manifest,
			NewFiles:      cs.Added,
			ModifiedFiles: cs.Modified,
			DeletedFiles:  cs.Deleted,
			ConfigChanged: configChanged,
		})
	}

	if !configChanged && cs.IsEmpty() {
		fmt.Fprintf(out, "%s is up to date\n", manifest)
		return nil
	}

	fmt.Fprintf(out, "%s is stale (%d changes):\n", manifest, cs.TotalChanges())
	if configChanged {
		fmt.Fprintln(out, "  settings changed")
	}
	for _, f := range cs.Added {
		fmt.Fprintf(out, "  + %s\n", f)
	}
	for _, f := range cs.Modified {
		fmt.Fprintf(out, "  ~ %s\n", f)
	}
	for _, f := range cs.Deleted {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	return nil
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
