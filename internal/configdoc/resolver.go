package configdoc

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Tier is the applicability class of a configuration file, encoded in
// its filename suffix. Tiers are applied most general first, so a more
// specific document can overwrite what a general one set.
type Tier int

const (
	TierAll Tier = iota
	TierPlatform
	TierBuild
	TierModel
)

var tierNames = []string{"All", "Platform", "Build", "Model"}

func (t Tier) String() string {
	if t < TierAll || t > TierModel {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// Query describes the running system the documents are matched against.
type Query struct {
	// Platform is "Client" or "Server".
	Platform string
	// Build is the bare build number used in filenames, e.g. "19041".
	Build string
	// Model is the hardware model identifier, e.g. "SurfaceX".
	Model string
}

// Loaded is one resolved document together with where it came from.
type Loaded struct {
	Path     string
	Tier     Tier
	Document *Document
}

// Resolve recursively enumerates root for the four suffix patterns
// (<Name>.All.json, <Name>.<Platform>.json, <Name>.<Build>.json,
// <Name>.<Model>.json) and returns the parsed documents ordered by
// tier, lexical walk order within a tier. A file that fails to parse
// or validate is logged and skipped; only an unreadable root is an
// error. Duplicate names across tiers are all kept: they match for
// different reasons and are all applied.
func Resolve(root string, q Query, log *logrus.Entry) ([]Loaded, error) {
	if strings.ContainsAny(q.Model, `/\`) {
		return nil, fmt.Errorf("model name %q contains a path separator", q.Model)
	}

	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("configuration root: %w", err)
	}

	// an unresolved fact (e.g. no model name) contributes an empty tier
	// rather than matching every .json file
	suffixes := make([]string, TierModel+1)
	suffixes[TierAll] = ".All.json"
	for tier, fact := range map[Tier]string{
		TierPlatform: q.Platform,
		TierBuild:    q.Build,
		TierModel:    q.Model,
	} {
		if fact != "" {
			suffixes[tier] = "." + fact + ".json"
		}
	}

	matches := make([][]string, len(suffixes))
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		for tier, suffix := range suffixes {
			if suffix == "" {
				continue
			}
			// Windows filesystems are case-insensitive, so the suffix
			// match has to be too. The stem must be non-empty.
			if len(name) <= len(suffix) || !strings.EqualFold(name[len(name)-len(suffix):], suffix) {
				continue
			}
			matches[tier] = append(matches[tier], path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning configuration root %s: %w", root, err)
	}

	var loaded []Loaded
	for tier, paths := range matches {
		sort.Strings(paths)
		for _, path := range paths {
			doc, err := Load(path)
			if err != nil {
				log.WithError(err).WithField("path", path).Error("skipping unparsable configuration file")
				continue
			}
			loaded = append(loaded, Loaded{
				Path:     path,
				Tier:     Tier(tier),
				Document: doc,
			})
		}
	}
	return loaded, nil
}

// Load reads and validates a single configuration document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return &doc, nil
}
