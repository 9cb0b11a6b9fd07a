package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/winprep/winprep/internal/apply"
)

var (
	languageFlag    string
	timezoneFlag    string
	workingPathFlag string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply all matching configuration documents and the once-off image steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logrus.StandardLogger()

		adapters, cleanup, err := newAdapters(dryRunFlag, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		opts := apply.Options{
			ConfigRoot:      toolConfig.ConfigRoot,
			WorkingPath:     toolConfig.WorkingPath,
			StagingPath:     toolConfig.StagingPath,
			Language:        languageFlag,
			TimeZone:        timezoneFlag,
			ToolVersion:     version,
			DryRun:          dryRunFlag,
			ContinueOnError: true,
		}
		if workingPathFlag != "" {
			opts.WorkingPath = workingPathFlag
		}
		if len(toolConfig.Removal.Allow) > 0 {
			opts.AllowList = toolConfig.Removal.Allow
		}
		if len(toolConfig.Removal.AllowPatterns) > 0 {
			opts.AllowPatterns = toolConfig.Removal.AllowPatterns
		}

		return apply.New(opts, adapters, logger).Run()
	},
}

func init() {
	applyCmd.Flags().StringVar(&languageFlag, "language", "", "system language to install and set, e.g. de-DE")
	applyCmd.Flags().StringVar(&timezoneFlag, "timezone", "", "timezone to set, e.g. 'W. Europe Standard Time'")
	applyCmd.Flags().StringVar(&workingPathFlag, "working-path", "", "override the working tree copy sources are resolved against")
}
