package configdoc

import (
	"encoding/json"
	"fmt"

	"github.com/winprep/winprep/internal/buildver"
)

// Document is one parsed customization unit. It is read fresh from disk
// on every run, immutable after parse and never written back.
type Document struct {
	Description  string            `json:"description"`
	MinimumBuild *buildver.Version `json:"minimumBuild,omitempty"`
	MaximumBuild *buildver.Version `json:"maximumBuild,omitempty"`

	Registry     *RegistryBlock     `json:"registry,omitempty"`
	StartMenu    *StartMenuBlock    `json:"startMenu,omitempty"`
	Files        *FilesBlock        `json:"files,omitempty"`
	Paths        *PathsBlock        `json:"paths,omitempty"`
	Features     *FeaturesBlock     `json:"features,omitempty"`
	Capabilities *CapabilitiesBlock `json:"capabilities,omitempty"`
	Packages     *PackagesBlock     `json:"packages,omitempty"`
	Services     *ServicesBlock     `json:"services,omitempty"`
}

// InRange reports whether the given OS build passes the document's
// version gate. Absent bounds are unbounded.
func (d *Document) InRange(build buildver.Version) bool {
	var min, max buildver.Version
	if d.MinimumBuild != nil {
		min = *d.MinimumBuild
	}
	if d.MaximumBuild != nil {
		max = *d.MaximumBuild
	}
	return build.InRange(min, max)
}

// Validate checks the invariants that cannot be expressed in the JSON
// schema itself.
func (d *Document) Validate() error {
	if d.MinimumBuild != nil && d.MaximumBuild != nil {
		if d.MaximumBuild.Less(*d.MinimumBuild) {
			return fmt.Errorf("minimumBuild %s is higher than maximumBuild %s", d.MinimumBuild, d.MaximumBuild)
		}
	}
	if d.Registry != nil {
		for _, e := range d.Registry.Set {
			if e.Path == "" || e.Name == "" {
				return fmt.Errorf("registry set entry needs both path and name")
			}
		}
		for _, c := range d.Registry.ChangeOwner {
			if c.Root == "" || c.Key == "" || c.SID == "" {
				return fmt.Errorf("registry changeOwner entry needs root, key and sid")
			}
		}
	}
	if d.StartMenu != nil {
		if err := d.StartMenu.validate(); err != nil {
			return err
		}
	}
	return nil
}

// RegistryMode selects which hive a registry block is written into.
type RegistryMode int

const (
	// RegistryModeNone disables the set/remove steps of the block.
	RegistryModeNone RegistryMode = iota
	// RegistryModeDefaultProfile writes into the default user profile
	// hive, affecting future new user profiles only.
	RegistryModeDefaultProfile
	// RegistryModeDirect writes into the live machine/user hives.
	RegistryModeDirect
)

var registryModeNames = map[string]RegistryMode{
	"None":           RegistryModeNone,
	"DefaultProfile": RegistryModeDefaultProfile,
	"Direct":         RegistryModeDirect,
}

func (m RegistryMode) String() string {
	for name, mode := range registryModeNames {
		if mode == m {
			return name
		}
	}
	return "None"
}

func (m *RegistryMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("registry type must be a string: %v", err)
	}
	mode, ok := registryModeNames[s]
	if !ok {
		return fmt.Errorf("unknown registry type %q", s)
	}
	*m = mode
	return nil
}

func (m RegistryMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// ValueType is the registry value type of a set entry.
type ValueType int

const (
	DWord ValueType = iota
	String
	ExpandString
	Binary
	MultiString
	QWord
)

var valueTypeNames = map[string]ValueType{
	"DWord":        DWord,
	"String":       String,
	"ExpandString": ExpandString,
	"Binary":       Binary,
	"MultiString":  MultiString,
	"QWord":        QWord,
}

func (t ValueType) String() string {
	for name, vt := range valueTypeNames {
		if vt == t {
			return name
		}
	}
	return "String"
}

func (t *ValueType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("registry value type must be a string: %v", err)
	}
	vt, ok := valueTypeNames[s]
	if !ok {
		return fmt.Errorf("unknown registry value type %q", s)
	}
	*t = vt
	return nil
}

func (t ValueType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// RegistryEntry is one value write. Value keeps whatever JSON carried
// (number, string or array); the registry adapter coerces it according
// to Type. Note is documentation only.
type RegistryEntry struct {
	Path  string    `json:"path"`
	Name  string    `json:"name"`
	Value any       `json:"value"`
	Type  ValueType `json:"type"`
	Note  string    `json:"note,omitempty"`
}

// OwnerChange reassigns the owner of a registry key to the given
// security principal. Applied before set/remove since default ACLs can
// block direct writes.
type OwnerChange struct {
	Root string `json:"root"`
	Key  string `json:"key"`
	SID  string `json:"sid"`
}

type RegistryBlock struct {
	Mode        RegistryMode    `json:"type"`
	Set         []RegistryEntry `json:"set,omitempty"`
	Remove      []string        `json:"remove,omitempty"`
	ChangeOwner []OwnerChange   `json:"changeOwner,omitempty"`
}

// CopySpec is one file copy, source resolved against the working path
// root at apply time.
type CopySpec struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type FilesBlock struct {
	Copy []CopySpec `json:"copy,omitempty"`
}

type PathsBlock struct {
	Remove []string `json:"remove,omitempty"`
}

type FeaturesBlock struct {
	Disable []string `json:"disable,omitempty"`
}

type CapabilitiesBlock struct {
	Remove []string `json:"remove,omitempty"`
}

// PackagesBlock names OS-level optional component packages, not AppX
// application packages.
type PackagesBlock struct {
	Remove []string `json:"remove,omitempty"`
}

type ServicesBlock struct {
	Stop    []string `json:"stop,omitempty"`
	Start   []string `json:"start,omitempty"`
	Restart []string `json:"restart,omitempty"`
}
