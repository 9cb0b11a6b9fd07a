package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "1.4.0"

var (
	configFlag  string
	verboseFlag bool
	dryRunFlag  bool

	toolConfig *ToolConfig
)

var rootCmd = &cobra.Command{
	Use:           "winprep",
	Short:         "Prepare a Windows golden image from declarative configuration",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		cfg, err := loadToolConfig(configFlag)
		if err != nil {
			return err
		}
		toolConfig = cfg

		level := logrus.InfoLevel
		if cfg.LogLevel != "" {
			level, err = logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
		}
		if verboseFlag {
			level = logrus.DebugLevel
		}
		logrus.SetLevel(level)
		return nil
	},
}

func main() {
	// A 32-bit deployment agent may launch the 32-bit binary on a
	// 64-bit OS; hand over to the native binary before doing anything.
	if code, ok := maybeReexec(); ok {
		os.Exit(code)
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", defaultToolConfigPath(), "path to the winprep tool configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&dryRunFlag, "dry-run", false, "log intended changes without performing them")

	rootCmd.AddCommand(applyCmd, removeCmd)

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("winprep failed")
		os.Exit(1)
	}
}

func defaultToolConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "winprep.toml"
	}
	return filepath.Join(filepath.Dir(exe), "winprep.toml")
}
