package main

import (
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/maastricht-university/edmo-facs/config"
	"github.com/maastricht-university/edmo-facs/emotion"
	"github.com/maastricht-university/edmo-facs/logging"
	"github.com/maastricht-university/edmo-facs/orchestrator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := cfg.New()
	var configFile string

	root := &cobra.Command{
		Use:          "facs",
		Short:        "Per-second emotion classification of facial action unit exports",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default config/$CONFIG_ENV/config.yaml)")
	root.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().String("patterns", "", "YAML pattern table replacing the built-in one")
	_ = v.BindPFlag("pipeline.log_level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("emotion.patterns_file", root.PersistentFlags().Lookup("patterns"))

	root.AddCommand(newProcessCmd(v, &configFile), newPatternsCmd(v, &configFile))
	return root
}

func newProcessCmd(v *viper.Viper, configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <export.csv>...",
		Short: "Aggregate, classify and persist one or more CSV exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := cfg.Load(v, *configFile)
			if err != nil {
				return err
			}
			log := logging.New(conf.Pipeline.LogLvl, conf.Pipeline.LogFormat)

			set, err := conf.Patterns()
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"name":     conf.Pipeline.Name,
				"version":  conf.Pipeline.Version,
				"emotions": set.Len(),
			}).Info("EDMO FACS pipeline starting")

			p := orchestrator.NewPipeline(conf, emotion.NewMatcher(set), log, clockwork.NewRealClock())
			outs, err := p.Run(cmd.Context(), args...)
			for _, o := range outs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", o.Name, o.Final)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.Float64P("threshold", "t", 0.2, "minimum normalized intensity for a dominant emotion")
	f.BoolP("split-tasks", "s", true, "write one result set per task delimiter")
	f.StringP("output-dir", "o", "results", "root directory for session outputs")
	f.IntP("workers", "w", 4, "seconds classified concurrently")
	_ = v.BindPFlag("emotion.threshold", f.Lookup("threshold"))
	_ = v.BindPFlag("processing.split_tasks", f.Lookup("split-tasks"))
	_ = v.BindPFlag("paths.outputs", f.Lookup("output-dir"))
	_ = v.BindPFlag("processing.workers", f.Lookup("workers"))
	return cmd
}

func newPatternsCmd(v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print the active emotion pattern table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := cfg.Load(v, *configFile)
			if err != nil {
				return err
			}
			set, err := conf.Patterns()
			if err != nil {
				return err
			}
			return emotion.WritePatterns(cmd.OutOrStdout(), set)
		},
	}
}
