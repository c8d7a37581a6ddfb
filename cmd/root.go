package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/pulseboard/insights-engine/pkg/config"
	"github.com/pulseboard/insights-engine/pkg/logging"
)

var (
	debug bool

	cfg    *cfgpkg.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "insights-engine",
	Short: "Turn tabular query results into profiles, anomalies and insights",
	Long: `insights-engine analyzes tabular query results from a BI data source and
produces classified column profiles, flagged anomalies, ranked insights and a
measure/dimension/breakdown model for chart and narrative generation.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main().
func Execute(version string) {
	cobra.OnInitialize(func() { initRuntime(version) })
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func initRuntime(version string) {
	c, err := cfgpkg.Load(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg = c

	l, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	if !debug {
		l = l.WithOptions(zap.IncreaseLevel(zap.InfoLevel))
	}
	logger = l
}
