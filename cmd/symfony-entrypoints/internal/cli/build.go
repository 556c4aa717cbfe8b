package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lhapaipai/vite-plugin-symfony/cmd/symfony-entrypoints/internal/incremental"
	"github.com/lhapaipai/vite-plugin-symfony/cmd/symfony-entrypoints/internal/watch"
	"github.com/lhapaipai/vite-plugin-symfony/internal/log"
	"github.com/lhapaipai/vite-plugin-symfony/pkg/config"
	"github.com/lhapaipai/vite-plugin-symfony/pkg/entrypoints"
	"github.com/lhapaipai/vite-plugin-symfony/pkg/util"
)

// errStale is returned by build --check when the manifest on disk differs.
var errStale = errors.New("manifest is out of date")

var buildFlags struct {
	check       bool
	incremental bool
	out         string
}

var buildCmd = &cobra.Command{
	Use:   "build [report...]",
	Short: "Generate the entrypoints manifest from bundle reports",
	Long: `Reads the bundle reports of one build, one per output target, and writes
the entrypoints manifest.

Reports default to the "reports" list of the configuration; relative paths
are resolved against the project root. A legacy build
passes two reports: the modern one and the SystemJS one, in any order.

The --check flag compares the manifest that would be written with the one on
disk and exits with status 1 when they differ.
The --incremental flag skips the build when neither the reports nor the
configuration changed since the last successful build.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildFlags.check, "check", false,
		"Exit with status 1 if the manifest is out of date")
	buildCmd.Flags().BoolVar(&buildFlags.incremental, "incremental", false,
		"Skip the build when inputs are unchanged")
	buildCmd.Flags().StringVarP(&buildFlags.out, "out", "o", "",
		"Manifest path (default: <out_dir>/.vite/entrypoints.json)")

	rootCmd.AddCommand(buildCmd)
}

// buildPlan is a resolved build invocation.
type buildPlan struct {
	cfg      *config.Config
	reports  []string
	manifest string
}

func newBuildPlan(cfg *config.Config, args []string, out string) (*buildPlan, error) {
	reports := cfg.ReportPaths()
	if len(args) > 0 {
		reports = make([]string, 0, len(args))
		for _, a := range args {
			reports = append(reports, absFrom(cfg.Root, a))
		}
	}
	reports = util.Dedupe(reports)
	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: no bundle reports given; pass them as arguments or set reports in %s",
			entrypoints.ErrConfiguration, config.ConfigFileName)
	}

	manifest := cfg.ManifestPath()
	if out != "" {
		manifest = absFrom(cfg.Root, out)
	}
	return &buildPlan{cfg: cfg, reports: reports, manifest: manifest}, nil
}

// trackedFiles lists the files a manifest depends on. Config and dotenv
// files that do not exist yet are included so that creating them counts.
func (p *buildPlan) trackedFiles() []string {
	files := append([]string(nil), p.reports...)
	if p.cfg.Path != "" {
		files = append(files, p.cfg.Path)
	}
	if global := config.GetGlobalConfigPath(); global != "" {
		files = append(files, global)
	}
	files = append(files, p.cfg.EnvPaths()...)
	return util.Dedupe(files)
}

// stamp fingerprints the effective settings the manifest is built from.
// It catches changes made through the process environment or by a new
// release, which no tracked file reflects.
func (p *buildPlan) stamp() string {
	data, err := json.Marshal(struct {
		Version  entrypoints.Version `json:"version"`
		Root     string              `json:"root"`
		Base     string              `json:"base"`
		Input    any                 `json:"input"`
		SRI      string              `json:"sri"`
		External []string            `json:"external"`
		Reports  []string            `json:"reports"`
		Manifest string              `json:"manifest"`
	}{
		Version:  manifestVersion(),
		Root:     p.cfg.Root,
		Base:     p.cfg.Base,
		Input:    p.cfg.Input,
		SRI:      string(p.cfg.SRI()),
		External: p.cfg.External,
		Reports:  p.reports,
		Manifest: p.manifest,
	})
	if err != nil {
		// decoded TOML values always encode
		return ""
	}
	return incremental.FingerprintBytes(data)
}

func (p *buildPlan) tracker() *incremental.Tracker {
	return incremental.NewTracker(p.cfg.Root, p.trackedFiles())
}

// session replays every report into a fresh session.
func (p *buildPlan) session() (*entrypoints.Session, error) {
	catalog, err := p.cfg.Catalog()
	if err != nil {
		return nil, err
	}
	external, err := p.cfg.ExternalFunc()
	if err != nil {
		return nil, err
	}

	session, err := entrypoints.NewSession(entrypoints.Options{
		Catalog:  catalog,
		Base:     p.cfg.Base,
		Outputs:  len(p.reports),
		SRI:      p.cfg.SRI(),
		External: external,
		Version:  manifestVersion(),
	})
	if err != nil {
		return nil, err
	}

	for _, path := range p.reports {
		report, err := entrypoints.ReadReport(path)
		if err != nil {
			session.Close()
			return nil, err
		}
		log.V(log.VerbosityDebug).Info("processing report", "path", path, "format", report.Format, "units", len(report.Units))
		if err := session.ProcessReport(report); err != nil {
			session.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return session, nil
}

// run writes the manifest, skipping the build when incremental state says
// nothing changed.
func (p *buildPlan) run(ctx context.Context, incr bool) (watch.Result, error) {
	result := watch.Result{Manifest: p.manifest, Files: p.trackedFiles()}
	tracker := p.tracker()
	stamp := p.stamp()

	if incr {
		upToDate, err := tracker.UpToDate(ctx, p.manifest, stamp)
		if err != nil {
			log.Warn("ignoring incremental state", "error", err)
		} else if upToDate {
			result.Skipped = true
			return result, nil
		}
	}

	session, err := p.session()
	if err != nil {
		return result, err
	}
	m, err := session.Emit(p.manifest)
	if err != nil {
		return result, err
	}
	result.Entries = len(m.EntryPoints)

	if err := tracker.Refresh(ctx, p.manifest, stamp); err != nil {
		log.Warn("failed to record incremental state", "error", err)
	}
	return result, nil
}

// check compares the manifest that would be written with the one on disk.
func (p *buildPlan) check() error {
	session, err := p.session()
	if err != nil {
		return err
	}
	m, err := session.Manifest()
	if err != nil {
		return err
	}
	want, err := m.Encode()
	if err != nil {
		return err
	}
	got, err := os.ReadFile(p.manifest)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s does not exist", errStale, p.manifest)
		}
		return fmt.Errorf("%w: %v", entrypoints.ErrIO, err)
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%w: %s", errStale, p.manifest)
	}
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	plan, err := newBuildPlan(cfg, args, buildFlags.out)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if buildFlags.check {
		if err := plan.check(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is up to date\n", relFrom(cfg.Root, plan.manifest))
		return nil
	}

	result, err := plan.run(cmd.Context(), buildFlags.incremental)
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Fprintf(out, "%s is up to date, nothing to do\n", relFrom(cfg.Root, plan.manifest))
		return nil
	}
	fmt.Fprintf(out, "wrote %s (%d entrypoints)\n", relFrom(cfg.Root, plan.manifest), result.Entries)
	return nil
}

func absFrom(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func relFrom(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil && filepath.IsLocal(rel) {
		return rel
	}
	return p
}
