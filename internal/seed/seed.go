// Package seed loads the startup datasets: one JSON file per public
// collection, plus a YAML snapshot of the protected users collection.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"docbay/internal/constants"
	"docbay/internal/document"
	"docbay/internal/logger"
)

// Collections is the in-memory shape of a seed: collection → id → record.
type Collections map[string]map[string]document.Doc

// LoadDataDir reads every *.json file in dir into a seed map. Each file
// holds one collection named after the file, keyed by record ID. A missing
// directory yields an empty seed.
func LoadDataDir(dir string, log *logger.Logger) (Collections, error) {
	seed := make(Collections)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		log.Warn("Seed: data directory %s does not exist, starting empty", dir)
		return seed, nil
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		collection := strings.TrimSuffix(entry.Name(), ".json")
		records, err := loadCollectionFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("seeding %s: %w", collection, err)
		}
		seed[collection] = records
		log.Info("Seed: loaded collection %s (%d records)", collection, len(records))
	}
	return seed, nil
}

func loadCollectionFile(path string) (map[string]document.Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]document.Doc
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Protected is the seed for the protected store. Users carry pre-hashed
// passwords; sessions always start empty.
type Protected struct {
	Users map[string]document.Doc `yaml:"users"`
}

// LoadProtected reads the protected seed YAML. A missing file yields a
// store with empty users and sessions collections.
func LoadProtected(path string, log *logger.Logger) (Collections, error) {
	seed := Collections{
		constants.CollectionUsers:    map[string]document.Doc{},
		constants.CollectionSessions: map[string]document.Doc{},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Warn("Seed: protected seed %s does not exist, starting with no users", path)
		return seed, nil
	}
	if err != nil {
		return nil, err
	}

	var protected Protected
	if err := yaml.Unmarshal(data, &protected); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for id, user := range protected.Users {
		normalized := normalizeYAML(map[string]any(user)).(map[string]any)
		seed[constants.CollectionUsers][id] = document.Doc(normalized)
	}
	log.Info("Seed: loaded %d protected users", len(protected.Users))
	return seed, nil
}

// normalizeYAML rewrites yaml.v3 container and number types into the JSON
// shapes the rest of the service works with.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return v
	}
}

// LoadRules reads the access-rule YAML into the raw mapping the rule
// compiler consumes. A missing file yields nil, which leaves the built-in
// defaults in force.
func LoadRules(path string, log *logger.Logger) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info("Seed: no rules file at %s, using defaults", path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return normalizeYAML(raw).(map[string]any), nil
}
