package apply

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winprep/winprep/internal/buildver"
	"github.com/winprep/winprep/internal/platform"
)

type fakeRegistry struct {
	ops      []string
	writeErr map[string]error
}

func (f *fakeRegistry) WriteValue(scope platform.RegistryScope, path, name, kind string, value any) error {
	if err := f.writeErr[name]; err != nil {
		return err
	}
	f.ops = append(f.ops, fmt.Sprintf("write %s %s\\%s=%v (%s)", scope, path, name, value, kind))
	return nil
}

func (f *fakeRegistry) DeleteKey(scope platform.RegistryScope, path string) error {
	f.ops = append(f.ops, fmt.Sprintf("delete %s %s", scope, path))
	return nil
}

func (f *fakeRegistry) ChangeOwner(root, key, sid string) error {
	f.ops = append(f.ops, fmt.Sprintf("chown %s\\%s %s", root, key, sid))
	return nil
}

type fakeServices struct {
	ops []string
	err map[string]error
}

func (f *fakeServices) Stop(name string) error    { return f.op("stop", name) }
func (f *fakeServices) Start(name string) error   { return f.op("start", name) }
func (f *fakeServices) Restart(name string) error { return f.op("restart", name) }

func (f *fakeServices) op(verb, name string) error {
	if err := f.err[name]; err != nil {
		return err
	}
	f.ops = append(f.ops, verb+" "+name)
	return nil
}

type fakeFiles struct {
	copies  []string
	trees   []string
	removed []string
	exists  map[string]bool
}

func (f *fakeFiles) Copy(source, destination string) error {
	f.copies = append(f.copies, source+" -> "+destination)
	return nil
}

func (f *fakeFiles) CopyTree(source, destination string) error {
	f.trees = append(f.trees, source+" -> "+destination)
	return nil
}

func (f *fakeFiles) RemovePath(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeFiles) Exists(path string) (bool, error) {
	return f.exists[path], nil
}

type fakeFeatures struct {
	installed   map[string]bool
	disabled    []string
	caps        []string
	pkgs        []string
	installErr  error
	disabledErr map[string]error
}

func (f *fakeFeatures) DisableFeature(name string) error {
	if err := f.disabledErr[name]; err != nil {
		return err
	}
	f.disabled = append(f.disabled, name)
	return nil
}

func (f *fakeFeatures) RemoveCapability(name string) error {
	f.caps = append(f.caps, name)
	return nil
}

func (f *fakeFeatures) RemovePackage(name string) error {
	f.pkgs = append(f.pkgs, name)
	return nil
}

func (f *fakeFeatures) FeatureInstalled(name string) (bool, error) {
	if f.installErr != nil {
		return false, f.installErr
	}
	return f.installed[name], nil
}

type fakeLocale struct {
	ops []string
}

func (f *fakeLocale) SetSystemLocale(language string) error {
	f.ops = append(f.ops, "locale "+language)
	return nil
}

func (f *fakeLocale) InstallLanguagePack(language string) error {
	f.ops = append(f.ops, "langpack "+language)
	return nil
}

func (f *fakeLocale) SetTimeZone(name string) error {
	f.ops = append(f.ops, "tz "+name)
	return nil
}

type fakeStore struct {
	platform.NullPackageStore
	installed []platform.Package
	removed   []string
	listed    bool
}

func (f *fakeStore) InstalledPackages(allUsers bool) ([]platform.Package, error) {
	f.listed = true
	return f.installed, nil
}

func (f *fakeStore) RemovePackage(fullName string, allUsers bool) error {
	f.removed = append(f.removed, fullName)
	return nil
}

type fakeFacts struct {
	facts platform.Facts
	err   error
}

func (f *fakeFacts) Facts() (platform.Facts, error) { return f.facts, f.err }

type fixture struct {
	registry *fakeRegistry
	services *fakeServices
	files    *fakeFiles
	features *fakeFeatures
	locale   *fakeLocale
	store    *fakeStore
	facts    *fakeFacts
	hook     *logrustest.Hook
}

func defaultFacts() platform.Facts {
	return platform.Facts{
		Build:    buildver.MustParse("10.0.19041"),
		Platform: "Server",
		Model:    "SurfaceX",
		OSName:   "Windows Server 2019 Standard",
		Elevated: true,
	}
}

func newFixture(facts platform.Facts) *fixture {
	return &fixture{
		registry: &fakeRegistry{},
		services: &fakeServices{},
		files:    &fakeFiles{exists: map[string]bool{}},
		features: &fakeFeatures{installed: map[string]bool{}},
		locale:   &fakeLocale{},
		store:    &fakeStore{},
		facts:    &fakeFacts{facts: facts},
	}
}

func (f *fixture) runner(opts Options) *Runner {
	logger, hook := logrustest.NewNullLogger()
	f.hook = hook
	return New(opts, Adapters{
		Registry: f.registry,
		Packages: f.store,
		Services: f.services,
		Files:    f.files,
		Features: f.features,
		Locale:   f.locale,
		Facts:    f.facts,
	}, logger)
}

func writeConfig(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
}

func (f *fixture) logMessages() []string {
	var msgs []string
	for _, e := range f.hook.Entries {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestRunAppliesDocumentsInTierOrder(t *testing.T) {
	root := t.TempDir()
	entry := func(name string) string {
		return fmt.Sprintf(`{"registry": {"type": "Direct", "set": [
			{"path": "SOFTWARE\\Test", "name": "%s", "value": 1, "type": "DWord"}]}}`, name)
	}
	writeConfig(t, root, "d.SurfaceX.json", entry("model"))
	writeConfig(t, root, "c.19041.json", entry("build"))
	writeConfig(t, root, "b.Server.json", entry("platform"))
	writeConfig(t, root, "a.All.json", entry("all"))

	f := newFixture(defaultFacts())
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())

	var order []string
	for _, op := range f.registry.ops {
		if strings.HasPrefix(op, "write Direct SOFTWARE\\Test") {
			order = append(order, op)
		}
	}
	require.Len(t, order, 4)
	assert.Contains(t, order[0], "all")
	assert.Contains(t, order[1], "platform")
	assert.Contains(t, order[2], "build")
	assert.Contains(t, order[3], "model")
}

func TestRunVersionGateSkipsWholeDocument(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "gated.All.json", `{
		"minimumBuild": "10.0.14393",
		"maximumBuild": "10.0.20348",
		"registry": {"type": "Direct", "set": [
			{"path": "SOFTWARE\\Gated", "name": "v", "value": 1, "type": "DWord"}]},
		"services": {"stop": ["DiagTrack"]}
	}`)

	facts := defaultFacts()
	facts.Build = buildver.MustParse("10.0.22000")
	f := newFixture(facts)
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())

	// no partial application: neither registry nor services touched
	for _, op := range f.registry.ops {
		assert.NotContains(t, op, "Gated")
	}
	assert.Empty(t, f.services.ops)
	assert.Contains(t, f.logMessages(), "skipping document, build outside version range")
}

func TestRunVersionGateInRange(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "gated.All.json", `{
		"minimumBuild": "10.0.14393",
		"maximumBuild": "10.0.20348",
		"services": {"stop": ["DiagTrack"]}
	}`)

	f := newFixture(defaultFacts())
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())
	assert.Equal(t, []string{"stop DiagTrack"}, f.services.ops)
}

func TestRunOwnerChangeBeforeRegistryWrites(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "a.All.json", `{"registry": {
		"type": "Direct",
		"changeOwner": [{"root": "HKLM", "key": "SOFTWARE\\Locked", "sid": "S-1-5-32-544"}],
		"set": [{"path": "HKLM\\SOFTWARE\\Locked", "name": "v", "value": 1, "type": "DWord"}],
		"remove": ["HKLM\\SOFTWARE\\Locked\\Old"]
	}}`)

	f := newFixture(defaultFacts())
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())

	require.GreaterOrEqual(t, len(f.registry.ops), 3)
	assert.True(t, strings.HasPrefix(f.registry.ops[0], "chown"))
	assert.True(t, strings.HasPrefix(f.registry.ops[1], "write"))
	// Direct-mode registry removal is always attempted, after set
	assert.Equal(t, "delete Direct HKLM\\SOFTWARE\\Locked\\Old", f.registry.ops[2])
}

func TestRunRegistryModeNoneSkipsWholeBlock(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "a.All.json", `{"registry": {
		"type": "None",
		"changeOwner": [{"root": "HKLM", "key": "SOFTWARE\\X", "sid": "S-1-5-32-544"}],
		"set": [{"path": "SOFTWARE\\X", "name": "v", "value": 1, "type": "DWord"}],
		"remove": ["SOFTWARE\\X\\Old"]
	}}`)

	f := newFixture(defaultFacts())
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())

	// the whole block is a no-op, owner changes included
	assert.Empty(t, f.registry.ops)
	assert.Contains(t, f.logMessages(), "registry block has no hive type, skipping")
}

func TestRunDefaultProfileScope(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "a.All.json", `{"registry": {
		"type": "DefaultProfile",
		"set": [{"path": "SOFTWARE\\Policies\\X", "name": "v", "value": 1, "type": "DWord"}]
	}}`)

	f := newFixture(defaultFacts())
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())

	require.NotEmpty(t, f.registry.ops)
	assert.True(t, strings.HasPrefix(f.registry.ops[0], "write DefaultProfile"))
}

func TestRunServerStartMenuMutualExclusivity(t *testing.T) {
	config := `{"startMenu": {
		"type": "Server",
		"feature": "ServerCore.AppCompatibility",
		"exists": [{"source": "full.bin", "destination": "C:\\Users\\Default\\start.bin"}],
		"notExists": [{"source": "core.bin", "destination": "C:\\Users\\Default\\start.bin"}]
	}}`

	for _, installed := range []bool{true, false} {
		t.Run(fmt.Sprintf("installed=%v", installed), func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, "menu.Server.json", config)

			f := newFixture(defaultFacts())
			f.features.installed["ServerCore.AppCompatibility"] = installed
			r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
			require.NoError(t, r.Run())

			// exactly one of the two sets is copied, never both, never neither
			require.Len(t, f.files.copies, 1)
			if installed {
				assert.Contains(t, f.files.copies[0], "full.bin")
			} else {
				assert.Contains(t, f.files.copies[0], "core.bin")
			}
		})
	}
}

func TestRunClientStartMenuByOSName(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "menu.All.json", `{"startMenu": {
		"type": "Client",
		"Windows 10 Enterprise": [{"source": "ent.bin", "destination": "C:\\start.bin"}],
		"Windows 11 Enterprise": [{"source": "w11.bin", "destination": "C:\\start2.bin"}]
	}}`)

	facts := defaultFacts()
	facts.OSName = "Windows 11 Enterprise"
	f := newFixture(facts)
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())

	require.Len(t, f.files.copies, 1)
	assert.Contains(t, f.files.copies[0], "w11.bin")
}

func TestRunClientStartMenuUnknownOSName(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "menu.All.json", `{"startMenu": {
		"type": "Client",
		"Windows 10 Enterprise": [{"source": "ent.bin", "destination": "C:\\start.bin"}]
	}}`)

	facts := defaultFacts()
	facts.OSName = "Windows 10 Pro"
	f := newFixture(facts)
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())
	assert.Empty(t, f.files.copies)
}

func TestRunDispatchesRemainingBlocks(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "a.All.json", `{
		"files": {"copy": [{"source": "layouts/x.xml", "destination": "C:\\x.xml"}]},
		"paths": {"remove": ["C:\\Windows\\Temp\\setup"]},
		"features": {"disable": ["SMB1Protocol"]},
		"capabilities": {"remove": ["App.Support.QuickAssist~~~~0.0.1.0"]},
		"packages": {"remove": ["Hello-Face-Package"]},
		"services": {"stop": ["DiagTrack"], "start": ["w32time"], "restart": ["wuauserv"]}
	}`)

	f := newFixture(defaultFacts())
	r := f.runner(Options{ConfigRoot: root, WorkingPath: "/work", ContinueOnError: true})
	require.NoError(t, r.Run())

	require.Len(t, f.files.copies, 1)
	assert.Equal(t, filepath.Join("/work", "layouts/x.xml")+" -> C:\\x.xml", f.files.copies[0])
	assert.Equal(t, []string{"C:\\Windows\\Temp\\setup"}, f.files.removed)
	assert.Equal(t, []string{"SMB1Protocol"}, f.features.disabled)
	assert.Equal(t, []string{"App.Support.QuickAssist~~~~0.0.1.0"}, f.features.caps)
	assert.Equal(t, []string{"Hello-Face-Package"}, f.features.pkgs)
	assert.Equal(t, []string{"stop DiagTrack", "start w32time", "restart wuauserv"}, f.services.ops)
}

func TestRunContinuesPastHandlerFailure(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "a.All.json", `{"services": {"stop": ["Missing", "DiagTrack"]}}`)

	f := newFixture(defaultFacts())
	f.services.err = map[string]error{"Missing": errors.New("service not found")}
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())

	assert.Equal(t, []string{"stop DiagTrack"}, f.services.ops)
}

func TestRunAbortsWithoutContinueOnError(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "a.All.json", `{"services": {"stop": ["Missing", "DiagTrack"]}}`)

	f := newFixture(defaultFacts())
	f.services.err = map[string]error{"Missing": errors.New("service not found")}
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: false})
	assert.Error(t, r.Run())
	assert.Empty(t, f.services.ops)
}

func TestRunOOBEGuard(t *testing.T) {
	root := t.TempDir()
	facts := defaultFacts()
	facts.SetupComplete = true
	f := newFixture(facts)
	f.store.installed = []platform.Package{{Name: "A", FullName: "A_1", FamilyName: "A_1"}}

	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())

	assert.False(t, f.store.listed)
	assert.Empty(t, f.store.removed)

	var guarded bool
	for _, msg := range f.logMessages() {
		if strings.Contains(msg, "must be invoked explicitly") {
			guarded = true
		}
	}
	assert.True(t, guarded)
}

func TestRunSafeRemovalBeforeOOBE(t *testing.T) {
	root := t.TempDir()
	f := newFixture(defaultFacts())
	f.store.installed = []platform.Package{
		{Name: "Bloat", FullName: "Vendor.Bloat_1", FamilyName: "Vendor.Bloat_abc"},
		{Name: "Store", FullName: "Store_1", FamilyName: "Microsoft.WindowsStore_8wekyb3d8bbwe"},
	}

	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())
	assert.Equal(t, []string{"Vendor.Bloat_1"}, f.store.removed)
}

func TestRunLocaleAndTimeZoneOnlyWhenSupplied(t *testing.T) {
	root := t.TempDir()

	f := newFixture(defaultFacts())
	r := f.runner(Options{ConfigRoot: root, ContinueOnError: true})
	require.NoError(t, r.Run())
	assert.Empty(t, f.locale.ops)

	f = newFixture(defaultFacts())
	r = f.runner(Options{
		ConfigRoot:      root,
		Language:        "de-DE",
		TimeZone:        "W. Europe Standard Time",
		ContinueOnError: true,
	})
	require.NoError(t, r.Run())
	assert.Equal(t, []string{"langpack de-DE", "locale de-DE", "tz W. Europe Standard Time"}, f.locale.ops)
}

func TestRunFeatureUpdateStagingIsIdempotent(t *testing.T) {
	root := t.TempDir()
	opts := Options{
		ConfigRoot:      root,
		WorkingPath:     `C:\winprep`,
		StagingPath:     `C:\Windows\System32\update\run\winprep`,
		ContinueOnError: true,
	}

	f := newFixture(defaultFacts())
	r := f.runner(opts)
	require.NoError(t, r.Run())
	assert.Equal(t, []string{`C:\winprep -> C:\Windows\System32\update\run\winprep`}, f.files.trees)

	// second run: already staged
	f = newFixture(defaultFacts())
	f.files.exists[opts.StagingPath] = true
	r = f.runner(opts)
	require.NoError(t, r.Run())
	assert.Empty(t, f.files.trees)
}

func TestRunStampsUninstallKeyEveryRun(t *testing.T) {
	root := t.TempDir()
	f := newFixture(defaultFacts())
	r := f.runner(Options{
		ConfigRoot:      root,
		WorkingPath:     `C:\winprep`,
		ToolVersion:     "1.2.3",
		ContinueOnError: true,
	})

	require.NoError(t, r.Run())
	require.NoError(t, r.Run())

	var stamps []string
	for _, op := range f.registry.ops {
		if strings.Contains(op, "Uninstall\\winprep") {
			stamps = append(stamps, op)
		}
	}
	// five values, overwritten on both runs
	assert.Len(t, stamps, 10)
	assert.Contains(t, stamps[1], "DisplayVersion=1.2.3")
}

func TestRunFatalOnMissingConfigRoot(t *testing.T) {
	f := newFixture(defaultFacts())
	r := f.runner(Options{ConfigRoot: filepath.Join(t.TempDir(), "missing"), ContinueOnError: true})
	assert.Error(t, r.Run())
	// fatal before any mutation
	assert.Empty(t, f.registry.ops)
}

func TestRunFatalOnFactsFailure(t *testing.T) {
	f := newFixture(defaultFacts())
	f.facts.err = errors.New("wmi unavailable")
	r := f.runner(Options{ConfigRoot: t.TempDir(), ContinueOnError: true})
	assert.Error(t, r.Run())
}

func TestBuildNumber(t *testing.T) {
	assert.Equal(t, "19041", buildNumber(buildver.MustParse("10.0.19041.390")))
	assert.Equal(t, "20348", buildNumber(buildver.MustParse("10.0.20348")))
	assert.Equal(t, "19041", buildNumber(buildver.MustParse("19041")))
	assert.Equal(t, "", buildNumber(nil))
}
