package platform

import (
	"fmt"
	"strings"
)

// securityObjectName builds the object name SetNamedSecurityInfo
// expects for a registry key. The API names registry objects by the
// predefined root strings (MACHINE, USERS, ...), not the HK*
// abbreviations.
func securityObjectName(root, key string) (string, error) {
	var prefix string
	switch strings.ToUpper(strings.TrimSuffix(root, ":")) {
	case "HKLM", "HKEY_LOCAL_MACHINE":
		prefix = "MACHINE"
	case "HKCU", "HKEY_CURRENT_USER":
		prefix = "CURRENT_USER"
	case "HKU", "HKEY_USERS":
		prefix = "USERS"
	case "HKCR", "HKEY_CLASSES_ROOT":
		prefix = "CLASSES_ROOT"
	default:
		return "", fmt.Errorf("unsupported registry root %q", root)
	}
	return prefix + `\` + key, nil
}
