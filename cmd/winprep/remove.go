package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/winprep/winprep/internal/removal"
)

var (
	allowFlag    []string
	patternFlag  []string
	targetedFlag bool
	denyFlag     []string
)

// removeCmd is the explicit removal entry point. Unlike the automatic
// safe-mode pass inside apply, it carries no setup-complete guard: it
// is meant to be invoked deliberately, e.g. in a feature-update
// maintenance window.
var removeCmd = &cobra.Command{
	Use:   "remove-packages",
	Short: "Remove application packages by safety policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logrus.StandardLogger()

		adapters, cleanup, err := newAdapters(dryRunFlag, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		facts, err := adapters.Facts.Facts()
		if err != nil {
			return err
		}

		mode := removal.Safe
		var policy removal.Policy
		if targetedFlag {
			mode = removal.Targeted
			deny := denyFlag
			if len(deny) == 0 {
				deny = toolConfig.Removal.Deny
			}
			policy = removal.NewTargetedPolicy(deny)
		} else {
			allow := firstNonEmpty(allowFlag, toolConfig.Removal.Allow, removal.DefaultAllowList)
			patterns := firstNonEmpty(patternFlag, toolConfig.Removal.AllowPatterns, removal.DefaultAllowPatterns)
			policy, err = removal.NewSafePolicy(allow, patterns)
			if err != nil {
				return err
			}
		}

		remover := &removal.Remover{Store: adapters.Packages, Log: logrus.NewEntry(logger)}
		if err := remover.Run(facts, policy, mode); err != nil {
			// best effort: log, keep exit code zero for pipelines
			logger.WithError(err).Error("package removal incomplete")
		}
		return nil
	},
}

func firstNonEmpty(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

func init() {
	removeCmd.Flags().StringSliceVar(&allowFlag, "allow", nil, "exact package family names to keep (safe mode)")
	removeCmd.Flags().StringSliceVar(&patternFlag, "allow-pattern", nil, "glob patterns of package families to keep (safe mode)")
	removeCmd.Flags().BoolVar(&targetedFlag, "targeted", false, "remove only the deny-listed packages")
	removeCmd.Flags().StringSliceVar(&denyFlag, "deny", nil, "exact package family names to remove (targeted mode)")
}
