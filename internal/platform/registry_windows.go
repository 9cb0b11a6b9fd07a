//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// defaultProfileMount is the HKU subkey the default user hive is
// loaded under while DefaultProfile-scoped writes run.
const defaultProfileMount = `WinprepDefaultProfile`

const defaultProfileHive = `C:\Users\Default\NTUSER.DAT`

// WindowsRegistry mutates the live registry. DefaultProfile-scoped
// operations lazily load the default user hive and require Close to
// unload it again.
type WindowsRegistry struct {
	mounted bool
}

func NewWindowsRegistry() *WindowsRegistry {
	return &WindowsRegistry{}
}

func (r *WindowsRegistry) WriteValue(scope RegistryScope, path, name, kind string, value any) error {
	root, subpath, err := r.resolve(scope, path)
	if err != nil {
		return err
	}
	key, _, err := registry.CreateKey(root, subpath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer key.Close()

	switch kind {
	case "DWord":
		n, err := toUint64(value)
		if err != nil {
			return err
		}
		return key.SetDWordValue(name, uint32(n))
	case "QWord":
		n, err := toUint64(value)
		if err != nil {
			return err
		}
		return key.SetQWordValue(name, n)
	case "String":
		return key.SetStringValue(name, fmt.Sprint(value))
	case "ExpandString":
		return key.SetExpandStringValue(name, fmt.Sprint(value))
	case "MultiString":
		items, err := toStrings(value)
		if err != nil {
			return err
		}
		return key.SetStringsValue(name, items)
	case "Binary":
		data, err := toBytes(value)
		if err != nil {
			return err
		}
		return key.SetBinaryValue(name, data)
	}
	return fmt.Errorf("unsupported registry value kind %q", kind)
}

func (r *WindowsRegistry) DeleteKey(scope RegistryScope, path string) error {
	root, subpath, err := r.resolve(scope, path)
	if err != nil {
		return err
	}
	return deleteKeyRecursive(root, subpath)
}

// ChangeOwner reassigns the owner of an existing registry key so that
// a subsequent write is not blocked by the default ACL.
func (r *WindowsRegistry) ChangeOwner(root, key, sid string) error {
	principal, err := windows.StringToSid(sid)
	if err != nil {
		return fmt.Errorf("invalid SID %q: %w", sid, err)
	}
	objectName, err := securityObjectName(root, key)
	if err != nil {
		return err
	}
	return windows.SetNamedSecurityInfo(
		objectName,
		windows.SE_REGISTRY_KEY,
		windows.OWNER_SECURITY_INFORMATION,
		principal,
		nil, nil, nil,
	)
}

// Close unloads the default profile hive if a DefaultProfile write
// loaded it.
func (r *WindowsRegistry) Close() error {
	if !r.mounted {
		return nil
	}
	r.mounted = false
	return exec.Command("reg.exe", "unload", `HKU\`+defaultProfileMount).Run()
}

func (r *WindowsRegistry) resolve(scope RegistryScope, path string) (registry.Key, string, error) {
	if scope == RegistryDefaultProfile {
		if err := r.mountDefaultProfile(); err != nil {
			return 0, "", err
		}
		// strip any hive prefix; everything default-profile goes under
		// the mounted user hive
		subpath := path
		if _, rest, err := splitRoot(path); err == nil {
			subpath = rest
		}
		return registry.USERS, defaultProfileMount + `\` + subpath, nil
	}
	return splitRoot(path)
}

func (r *WindowsRegistry) mountDefaultProfile() error {
	if r.mounted {
		return nil
	}
	out, err := exec.Command("reg.exe", "load", `HKU\`+defaultProfileMount, defaultProfileHive).CombinedOutput()
	if err != nil {
		return fmt.Errorf("loading default profile hive: %v: %s", err, strings.TrimSpace(string(out)))
	}
	r.mounted = true
	return nil
}

// splitRoot splits "HKLM\SOFTWARE\..." (or the "HKLM:" drive form)
// into the root key and the remaining subpath.
func splitRoot(path string) (registry.Key, string, error) {
	head, rest, _ := strings.Cut(strings.TrimPrefix(path, `\`), `\`)
	switch strings.ToUpper(strings.TrimSuffix(head, ":")) {
	case "HKLM", "HKEY_LOCAL_MACHINE":
		return registry.LOCAL_MACHINE, rest, nil
	case "HKCU", "HKEY_CURRENT_USER":
		return registry.CURRENT_USER, rest, nil
	case "HKU", "HKEY_USERS":
		return registry.USERS, rest, nil
	case "HKCR", "HKEY_CLASSES_ROOT":
		return registry.CLASSES_ROOT, rest, nil
	}
	return 0, "", fmt.Errorf("registry path %q has no recognized root", path)
}

func deleteKeyRecursive(root registry.Key, path string) error {
	key, err := registry.OpenKey(root, path, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		if err == registry.ErrNotExist {
			return nil
		}
		return err
	}
	names, err := key.ReadSubKeyNames(-1)
	key.Close()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := deleteKeyRecursive(root, path+`\`+name); err != nil {
			return err
		}
	}
	return registry.DeleteKey(root, path)
}

