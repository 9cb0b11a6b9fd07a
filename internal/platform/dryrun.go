package platform

import (
	"github.com/sirupsen/logrus"
)

// DryRunRegistry logs every intended registry mutation instead of
// performing it.
type DryRunRegistry struct {
	Log *logrus.Entry
}

func (r *DryRunRegistry) WriteValue(scope RegistryScope, path, name, kind string, value any) error {
	r.Log.WithFields(logrus.Fields{
		"scope": scope.String(),
		"path":  path,
		"name":  name,
		"kind":  kind,
		"value": value,
	}).Info("dry run: would write registry value")
	return nil
}

func (r *DryRunRegistry) DeleteKey(scope RegistryScope, path string) error {
	r.Log.WithFields(logrus.Fields{"scope": scope.String(), "path": path}).Info("dry run: would delete registry key")
	return nil
}

func (r *DryRunRegistry) ChangeOwner(root, key, sid string) error {
	r.Log.WithFields(logrus.Fields{"root": root, "key": key, "sid": sid}).Info("dry run: would change registry key owner")
	return nil
}

// DryRunServices logs intended service state changes.
type DryRunServices struct {
	Log *logrus.Entry
}

func (s *DryRunServices) Stop(name string) error {
	s.Log.WithField("service", name).Info("dry run: would stop service")
	return nil
}

func (s *DryRunServices) Start(name string) error {
	s.Log.WithField("service", name).Info("dry run: would start service")
	return nil
}

func (s *DryRunServices) Restart(name string) error {
	s.Log.WithField("service", name).Info("dry run: would restart service")
	return nil
}

// DryRunFiles logs intended copies and removals. Existence checks read
// the real filesystem so idempotence decisions stay truthful.
type DryRunFiles struct {
	Log   *logrus.Entry
	Inner Files
}

func (f *DryRunFiles) Copy(source, destination string) error {
	f.Log.WithFields(logrus.Fields{"source": source, "destination": destination}).Info("dry run: would copy file")
	return nil
}

func (f *DryRunFiles) CopyTree(source, destination string) error {
	f.Log.WithFields(logrus.Fields{"source": source, "destination": destination}).Info("dry run: would copy tree")
	return nil
}

func (f *DryRunFiles) RemovePath(path string) error {
	f.Log.WithField("path", path).Info("dry run: would remove path")
	return nil
}

func (f *DryRunFiles) Exists(path string) (bool, error) {
	return f.Inner.Exists(path)
}

// DryRunFeatures logs intended optional component removals; the
// installed-state query delegates to the real adapter.
type DryRunFeatures struct {
	Log   *logrus.Entry
	Inner OptionalFeatures
}

func (f *DryRunFeatures) DisableFeature(name string) error {
	f.Log.WithField("feature", name).Info("dry run: would disable feature")
	return nil
}

func (f *DryRunFeatures) RemoveCapability(name string) error {
	f.Log.WithField("capability", name).Info("dry run: would remove capability")
	return nil
}

func (f *DryRunFeatures) RemovePackage(name string) error {
	f.Log.WithField("package", name).Info("dry run: would remove component package")
	return nil
}

func (f *DryRunFeatures) FeatureInstalled(name string) (bool, error) {
	return f.Inner.FeatureInstalled(name)
}

// DryRunLocale logs intended locale and timezone changes.
type DryRunLocale struct {
	Log *logrus.Entry
}

func (l *DryRunLocale) SetSystemLocale(language string) error {
	l.Log.WithField("language", language).Info("dry run: would set system locale")
	return nil
}

func (l *DryRunLocale) InstallLanguagePack(language string) error {
	l.Log.WithField("language", language).Info("dry run: would install language pack")
	return nil
}

func (l *DryRunLocale) SetTimeZone(name string) error {
	l.Log.WithField("timezone", name).Info("dry run: would set timezone")
	return nil
}

// DryRunPackageStore delegates enumeration to the real store and logs
// removals and markers instead of performing them.
type DryRunPackageStore struct {
	Log   *logrus.Entry
	Inner PackageStore
}

func (p *DryRunPackageStore) InstalledPackages(allUsers bool) ([]Package, error) {
	return p.Inner.InstalledPackages(allUsers)
}

func (p *DryRunPackageStore) RemovePackage(fullName string, allUsers bool) error {
	p.Log.WithFields(logrus.Fields{"package": fullName, "allUsers": allUsers}).Info("dry run: would remove package")
	return nil
}

func (p *DryRunPackageStore) ProvisionedPackages() ([]Package, error) {
	return p.Inner.ProvisionedPackages()
}

func (p *DryRunPackageStore) RemoveProvisionedPackage(fullName string) error {
	p.Log.WithField("package", fullName).Info("dry run: would remove provisioned package")
	return nil
}

func (p *DryRunPackageStore) MarkDeprovisioned(fullName string) error {
	p.Log.WithField("package", fullName).Info("dry run: would write deprovisioning marker")
	return nil
}
