//go:build windows

package platform

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/winprep/winprep/internal/buildver"
)

const (
	currentVersionKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`
	setupStateKey     = `SOFTWARE\Microsoft\Windows\CurrentVersion\Setup\State`
	systemInfoKey     = `SYSTEM\CurrentControlSet\Control\SystemInformation`
)

// WindowsFacts resolves system facts from the registry and the process
// token. Facts are resolved once and cached for the run.
type WindowsFacts struct {
	cached *Facts
}

func (p *WindowsFacts) Facts() (Facts, error) {
	if p.cached != nil {
		return *p.cached, nil
	}

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, currentVersionKey, registry.QUERY_VALUE)
	if err != nil {
		return Facts{}, fmt.Errorf("opening CurrentVersion: %w", err)
	}
	defer key.Close()

	major, _, err := key.GetIntegerValue("CurrentMajorVersionNumber")
	if err != nil {
		return Facts{}, err
	}
	minor, _, err := key.GetIntegerValue("CurrentMinorVersionNumber")
	if err != nil {
		return Facts{}, err
	}
	build, _, err := key.GetStringValue("CurrentBuildNumber")
	if err != nil {
		return Facts{}, err
	}
	version, err := buildver.Parse(fmt.Sprintf("%d.%d.%s", major, minor, build))
	if err != nil {
		return Facts{}, err
	}
	if ubr, _, err := key.GetIntegerValue("UBR"); err == nil {
		version = append(version, ubr)
	}

	osName, _, err := key.GetStringValue("ProductName")
	if err != nil {
		return Facts{}, err
	}

	installationType, _, _ := key.GetStringValue("InstallationType")
	plat := "Client"
	if strings.Contains(strings.ToLower(installationType), "server") {
		plat = "Server"
	}

	facts := Facts{
		Build:         version,
		Platform:      plat,
		Model:         readModel(),
		OSName:        osName,
		Elevated:      windows.GetCurrentProcessToken().IsElevated(),
		SetupComplete: readSetupComplete(),
	}
	p.cached = &facts
	return facts, nil
}

func readModel() string {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, systemInfoKey, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer key.Close()
	model, _, err := key.GetStringValue("SystemProductName")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(model)
}

func readSetupComplete() bool {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, setupStateKey, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer key.Close()
	state, _, err := key.GetStringValue("ImageState")
	if err != nil {
		return false
	}
	return state == "IMAGE_STATE_COMPLETE"
}
