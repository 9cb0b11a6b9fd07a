package platform

// NullPackageStore is an empty package store. It backs dry runs on
// hosts where the real store is unavailable.
type NullPackageStore struct{}

func (NullPackageStore) InstalledPackages(bool) ([]Package, error) { return nil, nil }
func (NullPackageStore) RemovePackage(string, bool) error          { return nil }
func (NullPackageStore) ProvisionedPackages() ([]Package, error)   { return nil, nil }
func (NullPackageStore) RemoveProvisionedPackage(string) error     { return nil }
func (NullPackageStore) MarkDeprovisioned(string) error            { return nil }

// NullFeatures reports every feature as absent and performs nothing.
type NullFeatures struct{}

func (NullFeatures) DisableFeature(string) error           { return nil }
func (NullFeatures) RemoveCapability(string) error         { return nil }
func (NullFeatures) RemovePackage(string) error            { return nil }
func (NullFeatures) FeatureInstalled(string) (bool, error) { return false, nil }
