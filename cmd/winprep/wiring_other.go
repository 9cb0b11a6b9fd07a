//go:build !windows

package main

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/winprep/winprep/internal/apply"
	"github.com/winprep/winprep/internal/buildver"
	"github.com/winprep/winprep/internal/platform"
)

// Non-Windows hosts get dry-run-only wiring backed by null adapters,
// enough to exercise configuration resolution during development.
func newAdapters(dryRun bool, logger *logrus.Logger) (apply.Adapters, func() error, error) {
	if !dryRun {
		return apply.Adapters{}, nil, errors.New("winprep mutates a Windows system; only --dry-run is supported on this platform")
	}

	log := logrus.NewEntry(logger)
	adapters := apply.Adapters{
		Registry: &platform.DryRunRegistry{Log: log},
		Packages: &platform.DryRunPackageStore{Log: log, Inner: platform.NullPackageStore{}},
		Services: &platform.DryRunServices{Log: log},
		Files:    &platform.DryRunFiles{Log: log, Inner: platform.OSFiles{}},
		Features: &platform.DryRunFeatures{Log: log, Inner: platform.NullFeatures{}},
		Locale:   &platform.DryRunLocale{Log: log},
		Facts:    devFacts{},
	}
	return adapters, func() error { return nil }, nil
}

// devFacts stands in for the Windows facts provider off-platform.
type devFacts struct{}

func (devFacts) Facts() (platform.Facts, error) {
	return platform.Facts{
		Build:    buildver.MustParse("10.0.19041"),
		Platform: "Client",
		OSName:   "Windows 10 Enterprise",
	}, nil
}
