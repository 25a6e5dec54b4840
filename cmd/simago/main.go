// Command simago generates a synthetic population from a folder of YAML
// property descriptors and exports it to the configured sinks.
//
//	simago generate -p 1000 --yaml-folder ./data-yaml/ -o output/population.csv --rand-seed 100
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"simago/internal/core"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "simago: %v\n", err)
		return 1
	}
	return 0
}

type generateOptions struct {
	popsize     int
	seed        int64
	yamlFolder  string
	output      string
	nowrite     bool
	sinks       []string
	metrics     string
	metricsFile string
	tracer      string
	traceFile   string
	logLevel    string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "simago",
		Short:         "Synthetic population generator",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newGenerateCmd(stdout, stderr), newCheckCmd(stdout, stderr))
	return root
}

func newGenerateCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a population and export it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var seed *int64
			if cmd.Flags().Changed("rand-seed") {
				seed = &opts.seed
			}
			return runGenerate(cmd.Context(), opts, seed, stdout, stderr)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.popsize, "popsize", "p", 0, "size of the population")
	f.Int64Var(&opts.seed, "rand-seed", 0, "seed for random number generation (random when unset)")
	f.StringVar(&opts.yamlFolder, "yaml-folder", "./data-yaml/", "folder with the property YAML files")
	f.StringVarP(&opts.output, "output", "o", "output/population.csv",
		"export destination: a file path for csv/json (a <output>.meta JSON sidecar is written next to it) or a dataset name for sqlite/postgres")
	f.BoolVar(&opts.nowrite, "nowrite", false, "only print the preview, do not write the population")
	f.StringSliceVar(&opts.sinks, "sinks", nil, "export sinks: csv, json, sqlite, postgres, memory (default $SIMAGO_SINKS or csv)")
	f.StringVar(&opts.metrics, "metrics", "prometheus", "metrics recorder: prometheus, expvar")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write metrics to this file (textfile format for prometheus, JSON for expvar)")
	f.StringVar(&opts.tracer, "tracer", "json", "tracer: json, otel")
	f.StringVar(&opts.traceFile, "trace-file", "", "append trace records to this file (JSON lines or OpenTelemetry spans)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	_ = cmd.MarkFlagRequired("popsize")
	return cmd
}

func newCheckCmd(stdout, stderr io.Writer) *cobra.Command {
	var yamlFolder, logLevel string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the property YAML files and print the sampling order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(stderr, logLevel)
			if err != nil {
				return err
			}
			p, err := core.Generate(cmd.Context(), core.GenerateConfig{
				PopSize:    1,
				YAMLFolder: yamlFolder,
				Options:    []core.Option{core.WithLogger(logger)},
			})
			if err != nil {
				return err
			}
			for i, name := range p.Properties() {
				m, _ := p.Model(name)
				fmt.Fprintf(stdout, "%d. %s\n", i+1, m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&yamlFolder, "yaml-folder", "./data-yaml/", "folder with the property YAML files")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	return cmd
}

func runGenerate(ctx context.Context, opts generateOptions, seed *int64, stdout, stderr io.Writer) (retErr error) {
	logger, err := newLogger(stderr, opts.logLevel)
	if err != nil {
		return err
	}
	metrics, writeMetrics, err := newMetrics(opts.metrics)
	if err != nil {
		return err
	}
	options := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithPreviewWriter(stdout),
	}
	tracer, closeTracer, err := newTracer(opts.tracer, opts.traceFile)
	if err != nil {
		return err
	}
	defer func() { retErr = errors.Join(retErr, closeTracer(context.WithoutCancel(ctx))) }()
	if tracer != nil {
		options = append(options, core.WithTracer(tracer))
	}
	if !opts.nowrite {
		sinks, err := core.OpenSinks(ctx, opts.sinks...)
		if err != nil {
			return err
		}
		defer func() { retErr = errors.Join(retErr, sinks.Close()) }()
		options = append(options, core.WithSinks(sinks.List...))
	}
	if opts.metricsFile != "" {
		defer func() {
			if err := writeMetrics(opts.metricsFile); err != nil {
				retErr = errors.Join(retErr, fmt.Errorf("write metrics: %w", err))
			}
		}()
	}

	p, err := core.Generate(ctx, core.GenerateConfig{
		PopSize:    opts.popsize,
		Seed:       seed,
		YAMLFolder: opts.yamlFolder,
		Options:    options,
	})
	if err != nil {
		return err
	}
	if _, err := p.Update(ctx, core.All); err != nil {
		return err
	}
	res, err := p.Export(ctx, opts.output, !opts.nowrite)
	if err != nil {
		return err
	}
	for _, a := range res.Artifacts {
		fmt.Fprintf(stdout, "Population is written to %s (%s)\n", a.Location, a.Sink)
	}
	return nil
}

func newMetrics(kind string) (core.MetricsRecorder, func(string) error, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "prometheus":
		rec := core.NewPrometheusMetricsRecorder()
		return rec, rec.WriteTextfile, nil
	case "expvar":
		rec := core.NewExpvarMetricsRecorder("")
		return rec, rec.WriteFile, nil
	default:
		return nil, nil, fmt.Errorf("unknown metrics recorder %q", kind)
	}
}

// newTracer returns a nil tracer when tracing is off. The close func is
// always safe to call.
func newTracer(kind, path string) (core.Tracer, func(context.Context) error, error) {
	nop := func(context.Context) error { return nil }
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != "" && kind != "json" && kind != "otel" {
		return nil, nop, fmt.Errorf("unknown tracer %q", kind)
	}
	if path == "" {
		if kind == "otel" {
			return core.NewOTelTracer(nil), nop, nil
		}
		return nil, nop, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nop, fmt.Errorf("open trace file: %w", err)
	}
	if kind != "otel" {
		return core.NewJSONTracer(f), func(context.Context) error { return f.Close() }, nil
	}
	tracer, shutdown, err := core.NewOTelWriterTracer(f)
	if err != nil {
		_ = f.Close()
		return nil, nop, err
	}
	return tracer, func(ctx context.Context) error {
		return errors.Join(shutdown(ctx), f.Close())
	}, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
