package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lhapaipai/vite-plugin-symfony/cmd/symfony-entrypoints/internal/watch"
)

var watchFlags struct {
	debounce int
	out      string
	verbose  bool
	json     bool
	noColor  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [report...]",
	Short: "Rebuild the manifest whenever bundle reports change",
	Long: `Watches the bundle reports and the configuration file and regenerates
the entrypoints manifest after every change. Pair it with 'vite build --watch'.

Example output:

  $ symfony-entrypoints watch

  symfony-entrypoints: watching 2 files in /path/to/project
  symfony-entrypoints: ready

  [14:32:15] var/vite/report.json changed, rebuilding...
  [14:32:15] ✓ /path/to/project/public/build/.vite/entrypoints.json written (3 entries)

Press Ctrl+C to stop watching.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", 300,
		"Debounce window in milliseconds")
	watchCmd.Flags().StringVarP(&watchFlags.out, "out", "o", "",
		"Manifest path (default: <out_dir>/.vite/entrypoints.json)")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show file-level changes")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")
	watchCmd.Flags().BoolVar(&watchFlags.noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	plan, err := newBuildPlan(cfg, args, watchFlags.out)
	if err != nil {
		return err
	}

	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	w, err := watch.New(watch.Config{
		Root:         cfg.Root,
		Files:        plan.trackedFiles(),
		Debounce:     time.Duration(watchFlags.debounce) * time.Millisecond,
		Build:        rebuildFunc(args, watchFlags.out),
		BuildOnStart: true,
		Logger: watch.LoggerConfig{
			Writer:  cmd.OutOrStdout(),
			Verbose: watchFlags.verbose,
			NoColor: watchFlags.noColor,
			JSON:    watchFlags.json,
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	return w.Run(ctx)
}

// rebuildFunc reloads the configuration before every build so that edits
// to it apply without restarting. The watched files follow the reloaded
// configuration.
func rebuildFunc(args []string, out string) watch.BuildFunc {
	return func(ctx context.Context) (watch.Result, error) {
		cfg, err := loadConfig()
		if err != nil {
			return watch.Result{}, err
		}
		plan, err := newBuildPlan(cfg, args, out)
		if err != nil {
			return watch.Result{}, err
		}
		return plan.run(ctx, true)
	}
}
