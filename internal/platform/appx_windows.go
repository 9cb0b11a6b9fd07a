//go:build windows

package platform

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// deprovisionedKey is where the OS looks up packages that must not be
// reinstalled for new users.
const deprovisionedKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\Appx\AppxAllUserStore\Deprovisioned`

// AppxStore drives the AppX package store through PowerShell, the only
// supported surface for package enumeration and removal.
type AppxStore struct{}

func (AppxStore) InstalledPackages(allUsers bool) ([]Package, error) {
	script := "Get-AppxPackage"
	if allUsers {
		script += " -AllUsers"
	}
	script += " | Select-Object Name,PackageFullName,PackageFamilyName,NonRemovable,IsFramework | ConvertTo-Json -Compress"

	out, err := runPowerShell(script)
	if err != nil {
		return nil, err
	}
	return parsePackageJSON(out)
}

func (AppxStore) RemovePackage(fullName string, allUsers bool) error {
	script := "Remove-AppxPackage -Package " + psQuote(fullName)
	if allUsers {
		script += " -AllUsers"
	}
	_, err := runPowerShell(script)
	return err
}

func (AppxStore) ProvisionedPackages() ([]Package, error) {
	out, err := runPowerShell("Get-AppxProvisionedPackage -Online | Select-Object DisplayName,PackageName | ConvertTo-Json -Compress")
	if err != nil {
		return nil, err
	}

	var raw []struct {
		DisplayName string `json:"DisplayName"`
		PackageName string `json:"PackageName"`
	}
	if err := unmarshalOneOrMany(out, &raw); err != nil {
		return nil, err
	}
	packages := make([]Package, 0, len(raw))
	for _, p := range raw {
		// provisioned records have no family name with publisher hash;
		// policy matching falls back to the plain package name
		packages = append(packages, Package{
			Name:     p.DisplayName,
			FullName: p.PackageName,
		})
	}
	return packages, nil
}

func (AppxStore) RemoveProvisionedPackage(fullName string) error {
	_, err := runPowerShell("Remove-AppxProvisionedPackage -Online -PackageName " + psQuote(fullName))
	return err
}

func (AppxStore) MarkDeprovisioned(fullName string) error {
	key, _, err := registry.CreateKey(registry.LOCAL_MACHINE, deprovisionedKey+`\`+fullName, registry.SET_VALUE)
	if err != nil {
		return err
	}
	return key.Close()
}

func runPowerShell(script string) ([]byte, error) {
	cmd := exec.Command("powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %s", err, msg)
	}
	return out, nil
}

func parsePackageJSON(out []byte) ([]Package, error) {
	var raw []struct {
		Name              string `json:"Name"`
		PackageFullName   string `json:"PackageFullName"`
		PackageFamilyName string `json:"PackageFamilyName"`
		NonRemovable      bool   `json:"NonRemovable"`
		IsFramework       bool   `json:"IsFramework"`
	}
	if err := unmarshalOneOrMany(out, &raw); err != nil {
		return nil, err
	}
	packages := make([]Package, 0, len(raw))
	for _, p := range raw {
		packages = append(packages, Package{
			Name:         p.Name,
			FullName:     p.PackageFullName,
			FamilyName:   p.PackageFamilyName,
			NonRemovable: p.NonRemovable,
			IsFramework:  p.IsFramework,
		})
	}
	return packages, nil
}

// unmarshalOneOrMany tolerates ConvertTo-Json collapsing a single-item
// collection into a bare object.
func unmarshalOneOrMany[T any](data []byte, out *[]T) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal([]byte(trimmed), out)
	}
	var one T
	if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
		return err
	}
	*out = []T{one}
	return nil
}
