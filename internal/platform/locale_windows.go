//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"strings"
)

// WindowsLocale sets system language and timezone through the
// international PowerShell module and tzutil.
type WindowsLocale struct{}

func (WindowsLocale) SetSystemLocale(language string) error {
	quoted := psQuote(language)
	_, err := runPowerShell(
		"Set-WinSystemLocale -SystemLocale " + quoted + "; Set-WinUILanguageOverride -Language " + quoted)
	return err
}

func (WindowsLocale) InstallLanguagePack(language string) error {
	_, err := runPowerShell(
		"Install-Language -Language " + psQuote(language) + " | Out-Null")
	return err
}

func (WindowsLocale) SetTimeZone(name string) error {
	out, err := exec.Command("tzutil.exe", "/s", name).CombinedOutput()
	if err != nil {
		return fmt.Errorf("setting timezone %q: %v: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
