// Package removal decides which application packages leave the image
// and drives their removal. Selection is pure; all side effects live
// in Remover.
package removal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/winprep/winprep/internal/buildver"
	"github.com/winprep/winprep/internal/platform"
)

// ErrNotElevated is reported when provisioned package removal is
// required on a pre-threshold build but the process is not elevated.
var ErrNotElevated = errors.New("provisioned package removal requires elevation")

// provisionedRemovalThreshold: from this build on, removing a package
// for all users also drops the provisioned copy, so no second pass over
// the provisioned package list is needed.
var provisionedRemovalThreshold = buildver.MustParse("10.0.17134")

// Mode selects between the two removal strategies.
type Mode int

const (
	// Safe removes everything that is not allow-listed, not a
	// framework and not marked non-removable.
	Safe Mode = iota
	// Targeted removes only packages named in the deny list.
	Targeted
)

func (m Mode) String() string {
	if m == Targeted {
		return "targeted"
	}
	return "safe"
}

// Policy is the safety configuration for a removal run. Allow and
// patterns gate safe mode, deny gates targeted mode.
//
// List entries are family names, which carry a publisher-hash suffix
// (Microsoft.WindowsStore_8wekyb3d8bbwe). Provisioned package records
// only expose the package name without that suffix, so matching also
// compares the entry's name portion against Package.Name.
type Policy struct {
	allow      map[string]struct{}
	allowNames map[string]struct{}
	patterns   []glob.Glob
	deny       map[string]struct{}
	denyNames  map[string]struct{}
}

// NewSafePolicy builds a safe-mode policy from exact family names and
// glob patterns ('*' matches any run of characters). A pattern that
// does not compile is an error, not a silent skip.
func NewSafePolicy(allow []string, patterns []string) (Policy, error) {
	p := Policy{
		allow:      make(map[string]struct{}, len(allow)),
		allowNames: make(map[string]struct{}, len(allow)),
	}
	for _, name := range allow {
		p.allow[name] = struct{}{}
		p.allowNames[familyPrefix(name)] = struct{}{}
	}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return Policy{}, fmt.Errorf("allow-list pattern %q: %w", pattern, err)
		}
		p.patterns = append(p.patterns, g)
	}
	return p, nil
}

// NewTargetedPolicy builds a targeted-mode policy. Deny matches are
// exact; no wildcard support in this mode.
func NewTargetedPolicy(deny []string) Policy {
	p := Policy{
		deny:      make(map[string]struct{}, len(deny)),
		denyNames: make(map[string]struct{}, len(deny)),
	}
	for _, name := range deny {
		p.deny[name] = struct{}{}
		p.denyNames[familyPrefix(name)] = struct{}{}
	}
	return p
}

// familyPrefix strips the publisher-hash suffix from a family name.
func familyPrefix(family string) string {
	if i := strings.LastIndexByte(family, '_'); i >= 0 {
		return family[:i]
	}
	return family
}

func (p Policy) allows(pkg platform.Package) bool {
	if _, ok := p.allow[pkg.FamilyName]; ok {
		return true
	}
	_, ok := p.allowNames[pkg.Name]
	return ok
}

func (p Policy) denies(pkg platform.Package) bool {
	if _, ok := p.deny[pkg.FamilyName]; ok {
		return true
	}
	_, ok := p.denyNames[pkg.Name]
	return ok
}

// Select computes the removal candidate set. It never mutates its
// input and has no side effects.
func Select(installed []platform.Package, policy Policy, mode Mode) []platform.Package {
	var selected []platform.Package
	for _, pkg := range installed {
		if mode == Targeted {
			if policy.denies(pkg) {
				selected = append(selected, pkg)
			}
			continue
		}

		if pkg.NonRemovable || pkg.IsFramework {
			continue
		}
		if policy.allows(pkg) {
			continue
		}
		if matchesAny(policy.patterns, pkg.FamilyName) || matchesAny(policy.patterns, pkg.Name) {
			continue
		}
		selected = append(selected, pkg)
	}
	return selected
}

func matchesAny(patterns []glob.Glob, name string) bool {
	for _, g := range patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Remover drives the package store through a removal run.
type Remover struct {
	Store platform.PackageStore
	Log   *logrus.Entry
}

// Run enumerates, selects and removes packages. Enumeration scope
// follows the elevation fact of the caller; individual removal
// failures are logged and do not stop the run. The returned error is
// either an enumeration failure or ErrNotElevated from the
// provisioned-package pass.
func (r *Remover) Run(facts platform.Facts, policy Policy, mode Mode) error {
	allUsers := facts.Elevated
	installed, err := r.Store.InstalledPackages(allUsers)
	if err != nil {
		return fmt.Errorf("enumerating installed packages: %w", err)
	}

	selected := Select(installed, policy, mode)
	r.Log.WithFields(logrus.Fields{
		"mode":      mode.String(),
		"installed": len(installed),
		"selected":  len(selected),
		"allUsers":  allUsers,
	}).Info("removing application packages")

	for _, pkg := range selected {
		log := r.Log.WithField("package", pkg.FullName)
		if err := r.Store.RemovePackage(pkg.FullName, allUsers); err != nil {
			log.WithError(err).Error("package removal failed")
			continue
		}
		log.Info("package removed")
		// best effort; only affects future provisioning passes
		if err := r.Store.MarkDeprovisioned(pkg.FullName); err != nil {
			log.WithError(err).Warn("could not write deprovisioning marker")
		}
	}

	if facts.Build.Compare(provisionedRemovalThreshold) >= 0 {
		// per-user removal already dropped the provisioned copy
		return nil
	}
	return r.removeProvisioned(facts, policy, mode)
}

func (r *Remover) removeProvisioned(facts platform.Facts, policy Policy, mode Mode) error {
	if !facts.Elevated {
		r.Log.WithField("build", facts.Build.String()).Error(
			"this build requires a separate provisioned package pass, which needs elevation; skipping")
		return ErrNotElevated
	}

	provisioned, err := r.Store.ProvisionedPackages()
	if err != nil {
		return fmt.Errorf("enumerating provisioned packages: %w", err)
	}

	for _, pkg := range Select(provisioned, policy, mode) {
		log := r.Log.WithField("package", pkg.FullName)
		if err := r.Store.RemoveProvisionedPackage(pkg.FullName); err != nil {
			log.WithError(err).Error("provisioned package removal failed")
			continue
		}
		log.Info("provisioned package removed")
		if err := r.Store.MarkDeprovisioned(pkg.FullName); err != nil {
			log.WithError(err).Warn("could not write deprovisioning marker")
		}
	}
	return nil
}
