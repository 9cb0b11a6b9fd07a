// Package platform declares the capability interfaces the apply engine
// mutates the operating system through. The Windows implementations
// are intentionally thin adapters; everything the engine decides
// happens above this seam, which is also where dry-run and test fakes
// plug in.
package platform

import (
	"github.com/winprep/winprep/internal/buildver"
)

// Package is one installed application package, read-only.
type Package struct {
	Name         string
	FullName     string
	FamilyName   string
	NonRemovable bool
	IsFramework  bool
}

// PackageStore enumerates and removes application packages.
type PackageStore interface {
	// InstalledPackages lists per-user packages; allUsers widens the
	// enumeration to every user profile and requires elevation.
	InstalledPackages(allUsers bool) ([]Package, error)
	RemovePackage(fullName string, allUsers bool) error

	// ProvisionedPackages lists packages staged for future new users.
	ProvisionedPackages() ([]Package, error)
	RemoveProvisionedPackage(fullName string) error

	// MarkDeprovisioned records that a package must not be reinstalled
	// by future provisioning passes.
	MarkDeprovisioned(fullName string) error
}

// RegistryScope selects the hive family a write lands in.
type RegistryScope int

const (
	// RegistryDirect writes into the live machine/user hives.
	RegistryDirect RegistryScope = iota
	// RegistryDefaultProfile writes into the default user profile
	// hive, affecting future new user profiles only.
	RegistryDefaultProfile
)

func (s RegistryScope) String() string {
	if s == RegistryDefaultProfile {
		return "DefaultProfile"
	}
	return "Direct"
}

// Registry is the registry mutation surface. Kind is a registry value
// type name (DWord, String, ExpandString, Binary, MultiString, QWord);
// value carries whatever the configuration document held and is
// coerced by the implementation.
type Registry interface {
	WriteValue(scope RegistryScope, path, name, kind string, value any) error
	DeleteKey(scope RegistryScope, path string) error
	ChangeOwner(root, key, sid string) error
}

// Services controls Windows services by name.
type Services interface {
	Stop(name string) error
	Start(name string) error
	Restart(name string) error
}

// Files copies and removes filesystem paths.
type Files interface {
	Copy(source, destination string) error
	CopyTree(source, destination string) error
	RemovePath(path string) error
	Exists(path string) (bool, error)
}

// OptionalFeatures manages OS optional components: features,
// capabilities and component packages (distinct from AppX packages).
type OptionalFeatures interface {
	DisableFeature(name string) error
	RemoveCapability(name string) error
	RemovePackage(name string) error
	FeatureInstalled(name string) (bool, error)
}

// Locale sets system language and timezone.
type Locale interface {
	SetSystemLocale(language string) error
	InstallLanguagePack(language string) error
	SetTimeZone(name string) error
}

// Facts are the resolved properties of the running system.
type Facts struct {
	Build         buildver.Version
	Platform      string // "Client" or "Server"
	Model         string
	OSName        string // display name, e.g. "Windows 11 Enterprise"
	Elevated      bool
	SetupComplete bool // OOBE has finished
}

// FactsProvider resolves Facts once per run.
type FactsProvider interface {
	Facts() (Facts, error)
}
