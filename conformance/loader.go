package conformance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadedScenario pairs a Scenario with the fixture file it came from, for
// error reporting.
type LoadedScenario struct {
	File     string
	Scenario Scenario
}

// LoadDir reads every *.yaml fixture directly under dir (no recursion:
// each seed scenario is one flat file), sorted by filename for
// deterministic reporting.
func LoadDir(dir string) ([]LoadedScenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("conformance: reading %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var loaded []LoadedScenario
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("conformance: reading %s: %w", path, err)
		}
		var sc Scenario
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("conformance: parsing %s: %w", path, err)
		}
		loaded = append(loaded, LoadedScenario{File: name, Scenario: sc})
	}
	return loaded, nil
}
