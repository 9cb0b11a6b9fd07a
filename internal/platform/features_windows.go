//go:build windows

package platform

import (
	"strings"
)

// DismFeatures manages optional components through DISM, which is the
// supported offline/online servicing tool on both client and server.
type DismFeatures struct{}

func (DismFeatures) DisableFeature(name string) error {
	_, err := runPowerShell(
		"Disable-WindowsOptionalFeature -Online -FeatureName " + psQuote(name) + " -NoRestart | Out-Null")
	return err
}

func (DismFeatures) RemoveCapability(name string) error {
	_, err := runPowerShell(
		"Remove-WindowsCapability -Online -Name " + psQuote(name) + " | Out-Null")
	return err
}

func (DismFeatures) RemovePackage(name string) error {
	_, err := runPowerShell(
		"Remove-WindowsPackage -Online -PackageName " + psQuote(name) + " -NoRestart | Out-Null")
	return err
}

func (DismFeatures) FeatureInstalled(name string) (bool, error) {
	out, err := runPowerShell(
		"(Get-WindowsOptionalFeature -Online -FeatureName " + psQuote(name) + ").State")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(string(out)), "Enabled"), nil
}
