package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rosterFile is the on-disk YAML shape:
//
//	entries:
//	  QR123: [ROLL001, ROLL002]
//	  QR456: [ROLL003]
type rosterFile struct {
	Entries map[string][]string `yaml:"entries"`
}

// loadFile reads a YAML roster file into raw entries.
func loadFile(path string) (map[string][]string, error) {
	if path == "" {
		return nil, fmt.Errorf("roster: file source requires a path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}

	var parsed rosterFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing roster file %s: %w", path, err)
	}

	return parsed.Entries, nil
}
