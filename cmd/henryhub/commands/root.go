// Package commands implements the henryhub command-line interface.
package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sartorproj/henryhub/internal/analysis"
	"github.com/sartorproj/henryhub/internal/config"
	"github.com/sartorproj/henryhub/internal/logging"
	"github.com/sartorproj/henryhub/internal/metrics"
)

// Version is set at build time.
var Version = "dev"

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfgFile     string
	logLevel    string
	logFormat   string
	metricsFile string

	cfg     *config.Analysis
	log     *logrus.Logger
	metrics *metrics.Recorder
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "henryhub",
		Short: "Seasonal ARIMA analysis of Henry Hub natural gas prices",
		Long: `henryhub loads the monthly Henry Hub spot price series, log-transforms
and splits it, searches seasonal ARIMA orders, and compares candidate models
by information criteria, residual diagnostics and forecast accuracy on a
held-out window.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./henryhub.yaml, then $HOME/.henryhub.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format (text, json)")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newFitCmd(a))
	root.AddCommand(newTransformCmd(a))
	root.AddCommand(newStationarityCmd(a))
	root.AddCommand(newConfigCmd(a))

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	log, err := logging.New(a.logLevel, a.logFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = log

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if used := config.Used(a.cfgFile); used != "" {
		log.WithField("file", used).Debug("Using config file")
	}
	if cmd.Flags().Changed("metrics-file") {
		cfg.Output.MetricsFile = a.metricsFile
	}
	a.cfg = cfg
	a.metrics = metrics.New()
	return nil
}

// prepare loads and splits the configured series.
func (a *app) prepare() (*analysis.Data, error) {
	price, err := analysis.LoadSeries(a.cfg.Input)
	if err != nil {
		return nil, err
	}
	return analysis.Prepare(price, a.cfg.Transform, a.cfg.Split)
}

// flush writes the metrics textfile when one is configured.
func (a *app) flush() error {
	if a.cfg.Output.MetricsFile == "" {
		return nil
	}
	return a.metrics.WriteTextfile(a.cfg.Output.MetricsFile)
}

// inputFlags are shared by the commands that read the series.
type inputFlags struct {
	input      string
	testMonths int
	trainEnd   string
	noLog      bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "CSV file with the monthly price series")
	cmd.Flags().IntVar(&f.testMonths, "test-months", 0, "hold out the last N months")
	cmd.Flags().StringVar(&f.trainEnd, "train-end", "", "last training month (YYYY-MM), overrides --test-months")
	cmd.Flags().BoolVar(&f.noLog, "no-log", false, "model prices instead of log prices")
}

func (f *inputFlags) apply(cmd *cobra.Command, cfg *config.Analysis) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input.Path = f.input
	}
	if flags.Changed("test-months") {
		cfg.Split.TestMonths = f.testMonths
		cfg.Split.TrainEnd = ""
	}
	if flags.Changed("train-end") {
		cfg.Split.TrainEnd = f.trainEnd
	}
	if flags.Changed("no-log") {
		cfg.Transform.Log = !f.noLog
	}
}
