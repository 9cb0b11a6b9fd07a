// Package apply drives one customization run: resolve system facts,
// load the applicable configuration documents in tier order, dispatch
// every populated setting block to its adapter and finish with the
// once-off image steps. Everything after a successful launch is best
// effort; failures are logged and the run keeps going.
package apply

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/winprep/winprep/internal/buildver"
	"github.com/winprep/winprep/internal/configdoc"
	"github.com/winprep/winprep/internal/platform"
	"github.com/winprep/winprep/internal/removal"
)

// uninstallKey is stamped on every run so deployment tooling can
// detect the toolkit.
const uninstallKey = `HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\winprep`

// Options is the explicit per-run configuration. There is no ambient
// state; everything the run needs arrives here.
type Options struct {
	ConfigRoot  string
	WorkingPath string
	// StagingPath is the feature-update staging directory the working
	// tree is copied into for re-invocation during OS upgrades.
	StagingPath string

	// Language and TimeZone are applied only when non-empty.
	Language string
	TimeZone string

	// AllowList and AllowPatterns override the safe-mode removal
	// defaults when non-nil.
	AllowList     []string
	AllowPatterns []string

	ToolVersion string
	Publisher   string

	DryRun          bool
	ContinueOnError bool
}

// Adapters are the capability implementations the run mutates the
// system through.
type Adapters struct {
	Registry platform.Registry
	Packages platform.PackageStore
	Services platform.Services
	Files    platform.Files
	Features platform.OptionalFeatures
	Locale   platform.Locale
	Facts    platform.FactsProvider
}

// Runner executes one customization run.
type Runner struct {
	opts Options
	ad   Adapters
	log  *logrus.Entry

	// now is a hook for tests stamping InstallDate
	now func() time.Time
}

func New(opts Options, ad Adapters, logger *logrus.Logger) *Runner {
	if opts.ToolVersion == "" {
		opts.ToolVersion = "dev"
	}
	if opts.Publisher == "" {
		opts.Publisher = "winprep"
	}
	return &Runner{
		opts: opts,
		ad:   ad,
		log:  logger.WithField("run_id", uuid.New().String()),
		now:  time.Now,
	}
}

// Run performs the full pipeline. The returned error is fatal-only:
// facts or configuration resolution failed before any mutation, or a
// handler failed with ContinueOnError disabled. Best-effort failures
// are logged and do not surface here.
func (r *Runner) Run() error {
	facts, err := r.ad.Facts.Facts()
	if err != nil {
		return fmt.Errorf("resolving system facts: %w", err)
	}
	r.log.WithFields(logrus.Fields{
		"build":    facts.Build.String(),
		"platform": facts.Platform,
		"model":    facts.Model,
		"osName":   facts.OSName,
		"elevated": facts.Elevated,
		"dryRun":   r.opts.DryRun,
	}).Info("starting customization run")

	docs, err := configdoc.Resolve(r.opts.ConfigRoot, configdoc.Query{
		Platform: facts.Platform,
		Build:    buildNumber(facts.Build),
		Model:    facts.Model,
	}, r.log)
	if err != nil {
		return fmt.Errorf("resolving configuration documents: %w", err)
	}
	r.log.WithField("documents", len(docs)).Info("configuration documents resolved")

	for _, doc := range docs {
		if err := r.applyDocument(doc, facts); err != nil {
			return err
		}
	}

	r.removePackagesIfEligible(facts)
	r.setLocale()
	r.setTimeZone()
	r.persistForFeatureUpdate()
	r.stampUninstallKey()

	r.log.Info("customization run finished")
	return nil
}

// buildNumber is the bare build component used in config file names,
// e.g. "19041" out of 10.0.19041.390.
func buildNumber(v []uint64) string {
	if len(v) >= 3 {
		return strconv.FormatUint(v[2], 10)
	}
	if len(v) > 0 {
		return strconv.FormatUint(v[len(v)-1], 10)
	}
	return ""
}

func (r *Runner) applyDocument(loaded configdoc.Loaded, facts platform.Facts) error {
	doc := loaded.Document
	log := r.log.WithFields(logrus.Fields{
		"config": loaded.Path,
		"tier":   loaded.Tier.String(),
	})

	if !doc.InRange(facts.Build) {
		log.WithFields(logrus.Fields{
			"build":   facts.Build.String(),
			"minimum": versionOrEmpty(doc.MinimumBuild),
			"maximum": versionOrEmpty(doc.MaximumBuild),
		}).Info("skipping document, build outside version range")
		return nil
	}
	log.WithField("description", doc.Description).Info("applying document")

	if doc.Registry != nil {
		if err := r.applyRegistry(doc.Registry, log); err != nil {
			return err
		}
	}
	if doc.StartMenu != nil {
		if err := r.applyStartMenu(doc.StartMenu, facts, log); err != nil {
			return err
		}
	}
	if doc.Files != nil {
		for _, spec := range doc.Files.Copy {
			err := r.ad.Files.Copy(r.resolveSource(spec.Source), spec.Destination)
			if err := r.step(log, "file copy", err); err != nil {
				return err
			}
		}
	}
	if doc.Paths != nil {
		for _, path := range doc.Paths.Remove {
			if err := r.step(log, "path removal", r.ad.Files.RemovePath(path)); err != nil {
				return err
			}
		}
	}
	if doc.Features != nil {
		for _, name := range doc.Features.Disable {
			if err := r.step(log, "feature disable", r.ad.Features.DisableFeature(name)); err != nil {
				return err
			}
		}
	}
	if doc.Capabilities != nil {
		for _, name := range doc.Capabilities.Remove {
			if err := r.step(log, "capability removal", r.ad.Features.RemoveCapability(name)); err != nil {
				return err
			}
		}
	}
	if doc.Packages != nil {
		for _, name := range doc.Packages.Remove {
			if err := r.step(log, "component package removal", r.ad.Features.RemovePackage(name)); err != nil {
				return err
			}
		}
	}
	if doc.Services != nil {
		if err := r.applyServices(doc.Services, log); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) applyRegistry(block *configdoc.RegistryBlock, log *logrus.Entry) error {
	var scope platform.RegistryScope
	switch block.Mode {
	case configdoc.RegistryModeDirect:
		scope = platform.RegistryDirect
	case configdoc.RegistryModeDefaultProfile:
		scope = platform.RegistryDefaultProfile
	default:
		log.Info("registry block has no hive type, skipping")
		return nil
	}

	// owner changes first: they can be the prerequisite for the writes
	for _, change := range block.ChangeOwner {
		err := r.ad.Registry.ChangeOwner(change.Root, change.Key, change.SID)
		if err := r.step(log, "registry owner change", err); err != nil {
			return err
		}
	}

	for _, entry := range block.Set {
		err := r.ad.Registry.WriteValue(scope, entry.Path, entry.Name, entry.Type.String(), entry.Value)
		if err := r.step(log.WithField("path", entry.Path), "registry write", err); err != nil {
			return err
		}
	}
	for _, path := range block.Remove {
		err := r.ad.Registry.DeleteKey(scope, path)
		if err := r.step(log.WithField("path", path), "registry key removal", err); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) applyStartMenu(block *configdoc.StartMenuBlock, facts platform.Facts, log *logrus.Entry) error {
	var copies []configdoc.CopySpec

	switch block.Kind {
	case configdoc.StartMenuServer:
		installed, err := r.ad.Features.FeatureInstalled(block.Server.Feature)
		if err != nil {
			return r.step(log, "start menu feature check", err)
		}
		if installed {
			copies = block.Server.Exists
		} else {
			copies = block.Server.NotExists
		}
		log.WithFields(logrus.Fields{
			"feature":   block.Server.Feature,
			"installed": installed,
		}).Info("copying server start menu layout")
	case configdoc.StartMenuClient:
		var ok bool
		copies, ok = block.Client[facts.OSName]
		if !ok {
			log.WithField("osName", facts.OSName).Info("no start menu layout for this OS name")
			return nil
		}
		log.WithField("osName", facts.OSName).Info("copying client start menu layout")
	}

	for _, spec := range copies {
		err := r.ad.Files.Copy(r.resolveSource(spec.Source), spec.Destination)
		if err := r.step(log, "start menu copy", err); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) applyServices(block *configdoc.ServicesBlock, log *logrus.Entry) error {
	for _, name := range block.Stop {
		if err := r.step(log.WithField("service", name), "service stop", r.ad.Services.Stop(name)); err != nil {
			return err
		}
	}
	for _, name := range block.Start {
		if err := r.step(log.WithField("service", name), "service start", r.ad.Services.Start(name)); err != nil {
			return err
		}
	}
	for _, name := range block.Restart {
		if err := r.step(log.WithField("service", name), "service restart", r.ad.Services.Restart(name)); err != nil {
			return err
		}
	}
	return nil
}

// step implements the best-effort contract: a handler failure is
// logged and swallowed unless ContinueOnError is disabled.
func (r *Runner) step(log *logrus.Entry, name string, err error) error {
	if err == nil {
		return nil
	}
	log.WithError(err).Errorf("%s failed", name)
	if r.opts.ContinueOnError {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (r *Runner) resolveSource(source string) string {
	if r.opts.WorkingPath == "" || filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(r.opts.WorkingPath, source)
}

func (r *Runner) removePackagesIfEligible(facts platform.Facts) {
	if facts.SetupComplete {
		r.log.Info("initial setup is complete; safe-mode package removal is skipped and must be invoked explicitly via remove-packages")
		return
	}

	allow := r.opts.AllowList
	if allow == nil {
		allow = removal.DefaultAllowList
	}
	patterns := r.opts.AllowPatterns
	if patterns == nil {
		patterns = removal.DefaultAllowPatterns
	}
	policy, err := removal.NewSafePolicy(allow, patterns)
	if err != nil {
		r.log.WithError(err).Error("invalid package allow-list, skipping package removal")
		return
	}

	remover := &removal.Remover{Store: r.ad.Packages, Log: r.log}
	if err := remover.Run(facts, policy, removal.Safe); err != nil {
		r.log.WithError(err).Error("package removal incomplete")
	}
}

func (r *Runner) setLocale() {
	if r.opts.Language == "" {
		return
	}
	log := r.log.WithField("language", r.opts.Language)
	if err := r.ad.Locale.InstallLanguagePack(r.opts.Language); err != nil {
		log.WithError(err).Error("language pack installation failed")
	}
	if err := r.ad.Locale.SetSystemLocale(r.opts.Language); err != nil {
		log.WithError(err).Error("setting system locale failed")
	} else {
		log.Info("system locale set")
	}
}

func (r *Runner) setTimeZone() {
	if r.opts.TimeZone == "" {
		return
	}
	if err := r.ad.Locale.SetTimeZone(r.opts.TimeZone); err != nil {
		r.log.WithError(err).WithField("timezone", r.opts.TimeZone).Error("setting timezone failed")
	} else {
		r.log.WithField("timezone", r.opts.TimeZone).Info("timezone set")
	}
}

// persistForFeatureUpdate stages the working tree for re-invocation
// during the next feature update. Idempotent: an existing staging copy
// is left alone.
func (r *Runner) persistForFeatureUpdate() {
	if r.opts.StagingPath == "" || r.opts.WorkingPath == "" {
		return
	}
	log := r.log.WithField("stagingPath", r.opts.StagingPath)

	exists, err := r.ad.Files.Exists(r.opts.StagingPath)
	if err != nil {
		log.WithError(err).Error("could not check feature-update staging path")
		return
	}
	if exists {
		log.Info("feature-update staging copy already present")
		return
	}
	if err := r.ad.Files.CopyTree(r.opts.WorkingPath, r.opts.StagingPath); err != nil {
		log.WithError(err).Error("staging for feature update failed")
		return
	}
	log.Info("staged working tree for feature update")
}

// stampUninstallKey overwrites the five fixed install-detection values
// on every run.
func (r *Runner) stampUninstallKey() {
	values := []struct {
		name  string
		value string
	}{
		{"DisplayName", "winprep"},
		{"DisplayVersion", r.opts.ToolVersion},
		{"Publisher", r.opts.Publisher},
		{"InstallDate", r.now().Format("20060102")},
		{"InstallLocation", r.opts.WorkingPath},
	}
	for _, v := range values {
		err := r.ad.Registry.WriteValue(platform.RegistryDirect, uninstallKey, v.name, "String", v.value)
		if err != nil {
			r.log.WithError(err).WithField("name", v.name).Error("stamping uninstall key failed")
		}
	}
}

func versionOrEmpty(v *buildver.Version) string {
	if v == nil {
		return ""
	}
	return v.String()
}
