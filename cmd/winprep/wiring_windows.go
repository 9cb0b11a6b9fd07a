//go:build windows

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/winprep/winprep/internal/apply"
	"github.com/winprep/winprep/internal/platform"
)

func newAdapters(dryRun bool, logger *logrus.Logger) (apply.Adapters, func() error, error) {
	reg := platform.NewWindowsRegistry()
	store := platform.AppxStore{}
	features := platform.DismFeatures{}

	adapters := apply.Adapters{
		Registry: reg,
		Packages: store,
		Services: platform.WindowsServices{},
		Files:    platform.OSFiles{},
		Features: features,
		Locale:   platform.WindowsLocale{},
		Facts:    &platform.WindowsFacts{},
	}

	if dryRun {
		log := logrus.NewEntry(logger)
		adapters.Registry = &platform.DryRunRegistry{Log: log}
		adapters.Packages = &platform.DryRunPackageStore{Log: log, Inner: store}
		adapters.Services = &platform.DryRunServices{Log: log}
		adapters.Files = &platform.DryRunFiles{Log: log, Inner: platform.OSFiles{}}
		adapters.Features = &platform.DryRunFeatures{Log: log, Inner: features}
		adapters.Locale = &platform.DryRunLocale{Log: log}
		return adapters, func() error { return nil }, nil
	}
	return adapters, reg.Close, nil
}
