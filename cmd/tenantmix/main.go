package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/tenantmix/internal/artifact"
	"github.com/dshills/tenantmix/internal/config"
	"github.com/dshills/tenantmix/internal/dashboard"
	"github.com/dshills/tenantmix/internal/diff"
	"github.com/dshills/tenantmix/internal/logging"
	"github.com/dshills/tenantmix/internal/pipeline"
	"github.com/dshills/tenantmix/internal/profile"
	"github.com/dshills/tenantmix/internal/render"
	"github.com/dshills/tenantmix/internal/schema"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitGeneric  = 1
	exitDiff     = 2
	exitInvalid  = 3
	exitSchema   = 4
	exitWriteErr = 5
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// runFlags holds the parsed flags for the run command.
type runFlags struct {
	configPath  string
	envFile     string
	malls       string
	stores      string
	sales       string
	out         string
	summary     string
	metricsFile string
	profileName string
	verbose     bool
}

// reportFlags holds the parsed flags for the report command.
type reportFlags struct {
	configPath   string
	artifact     string
	mall         string
	format       string
	avgStoreSize float64
	out          string
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitGeneric)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tenantmix",
		Short:         "Flag underperforming stores and recommend replacement tenants",
		Long:          "tenantmix scores every store of a mall portfolio against its peers and writes the dashboard artifact of ranked tenant-category recommendations.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newReportCmd(), newValidateCmd(), newDiffCmd(), newProfilesCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scoring pipeline and write the dashboard artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runPipeline(ctx, cmd, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "YAML configuration file (default ./tenantmix.yaml when present)")
	f.StringVar(&flags.envFile, "env-file", "", "dotenv file loaded before the environment (default .env)")
	f.StringVar(&flags.malls, "malls", "", "Malls table (CSV)")
	f.StringVar(&flags.stores, "stores", "", "Stores table (CSV)")
	f.StringVar(&flags.sales, "sales", "", "Sales table (CSV)")
	f.StringVar(&flags.out, "out", "", "Artifact path (default "+schema.DefaultArtifactName+")")
	f.StringVar(&flags.summary, "summary", "", "Run summary path (JSON)")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.StringVar(&flags.profileName, "profile", "", "Scoring profile: "+strings.Join(profile.Names(), ", "))
	f.BoolVar(&flags.verbose, "verbose", false, "Log per-row diagnostics (debug level)")
	return cmd
}

func runPipeline(ctx context.Context, cmd *cobra.Command, flags runFlags) error {
	overrides := map[string]any{}
	set := func(flag, key string, v any) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = v
		}
	}
	set("malls", "input.malls", flags.malls)
	set("stores", "input.stores", flags.stores)
	set("sales", "input.sales", flags.sales)
	set("out", "artifact.path", flags.out)
	set("summary", "output.summary_path", flags.summary)
	set("metrics-file", "output.metrics_path", flags.metricsFile)
	set("profile", "scoring.profile", flags.profileName)
	if flags.verbose {
		overrides["logging.level"] = "debug"
	}

	cfg, err := config.Load(config.LoadOptions{Path: flags.configPath, EnvFile: flags.envFile, Overrides: overrides})
	if err != nil {
		return codeError(exitInvalid, "%s", err)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	sum, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return classify(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d stores, %d flagged, %d recommendations (run %s)\n",
		cfg.Artifact.Path, sum.Totals.Stores, sum.Totals.Flagged, sum.Totals.Recommendations, sum.RunID)
	return nil
}

func newReportCmd() *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise the dashboard artifact per mall",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	f.StringVar(&flags.artifact, "artifact", "", "Artifact to read (default from configuration)")
	f.StringVar(&flags.mall, "mall", "", "Report a single mall")
	f.StringVar(&flags.format, "format", "text", "Output format: "+strings.Join(render.Formats, ", "))
	f.Float64Var(&flags.avgStoreSize, "avg-store-size", dashboard.DefaultAvgStoreSize, "Store size in m² used for the revenue unlock")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	return cmd
}

func runReport(cmd *cobra.Command, flags reportFlags) error {
	if flags.avgStoreSize <= 0 {
		return codeError(exitInvalid, "invalid flags: --avg-store-size must be > 0, got %g", flags.avgStoreSize)
	}
	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(exitInvalid, "invalid flags: %s", err)
	}

	path := flags.artifact
	if path == "" {
		cfg, err := config.Load(config.LoadOptions{Path: flags.configPath})
		if err != nil {
			return codeError(exitInvalid, "%s", err)
		}
		path = cfg.Artifact.Path
	}

	rows, err := artifact.Check(path)
	if err != nil {
		return classify(err)
	}
	report, err := dashboard.Build(rows, dashboard.Options{MallID: flags.mall, AvgStoreSize: flags.avgStoreSize})
	if err != nil {
		return codeError(exitInvalid, "%s", err)
	}
	out, err := renderer.Render(report)
	if err != nil {
		return codeError(exitGeneric, "rendering output: %s", err)
	}
	return writeOutput(cmd, flags.out, out)
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <artifact>",
		Short: "Check an artifact against the current column schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := artifact.Check(args[0])
			if err != nil {
				return classify(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, schema v%s ok\n", args[0], len(rows), schema.ArtifactSchemaVersion)
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	var patch bool
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Show the lines that changed between two artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args[0], args[1], patch)
		},
	}
	cmd.Flags().BoolVar(&patch, "patch", false, "Print diff-match-patch patch text instead of changed lines")
	return cmd
}

func runDiff(cmd *cobra.Command, oldPath, newPath string, patch bool) error {
	before, err := readArtifact(oldPath)
	if err != nil {
		return err
	}
	after, err := readArtifact(newPath)
	if err != nil {
		return err
	}
	res := diff.Lines(before, after)
	if !res.Differs() {
		return nil
	}
	w := cmd.OutOrStdout()
	if patch {
		fmt.Fprint(w, diff.Patch(before, after))
	} else {
		fmt.Fprint(w, res.Text)
	}
	return codeError(exitDiff, "%s and %s differ: %d line(s) removed, %d added", oldPath, newPath, res.Removed, res.Added)
}

func readArtifact(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", codeError(exitInvalid, "artifact %s not found", path)
	}
	if err != nil {
		return "", codeError(exitGeneric, "reading %s: %s", path, err)
	}
	return string(data), nil
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in scoring profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, name := range profile.Names() {
				p, err := profile.Get(name)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				fmt.Fprint(cmd.OutOrStdout(), p.Describe())
			}
			return nil
		},
	}
}

// classify maps pipeline and artifact errors onto exit codes.
func classify(err error) error {
	switch {
	case errors.Is(err, schema.ErrSchemaMismatch):
		return codeError(exitSchema, "%s", err)
	case errors.Is(err, artifact.ErrWriteFailed):
		return codeError(exitWriteErr, "%s", err)
	case errors.Is(err, pipeline.ErrInput), errors.Is(err, artifact.ErrArtifactNotFound):
		return codeError(exitInvalid, "%s", err)
	case errors.Is(err, context.Canceled):
		return codeError(exitGeneric, "interrupted")
	default:
		return codeError(exitGeneric, "%s", err)
	}
}

func writeOutput(cmd *cobra.Command, path string, out []byte) error {
	if path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return codeError(exitWriteErr, "writing output file: %s", err)
		}
		return nil
	}
	w := cmd.OutOrStdout()
	if _, err := w.Write(out); err != nil {
		return codeError(exitGeneric, "writing output: %s", err)
	}
	// Ensure output ends with a newline for terminal friendliness.
	if len(out) > 0 && out[len(out)-1] != '\n' {
		fmt.Fprintln(w)
	}
	return nil
}
