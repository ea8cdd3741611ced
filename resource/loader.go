package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResourceLoader holds every level definition found under DataPath.
type ResourceLoader struct {
	DataPath string
	Levels   map[string]*LevelDef
}

// NewLoader creates a ResourceLoader. Call Load to read the level files.
func NewLoader(dataPath string) *ResourceLoader {
	return &ResourceLoader{
		DataPath: dataPath,
		Levels:   make(map[string]*LevelDef),
	}
}

// Load reads every level file in DataPath, replacing the current set.
func (rl *ResourceLoader) Load() error {
	levels, err := LoadDir(rl.DataPath)
	if err != nil {
		return err
	}
	rl.Levels = levels
	return nil
}

// Level returns the definition named name, or nil.
func (rl *ResourceLoader) Level(name string) *LevelDef {
	return rl.Levels[name]
}

// Add registers a definition, replacing any level of the same name.
func (rl *ResourceLoader) Add(def *LevelDef) {
	rl.Levels[def.Name] = def
}

// Names returns the known level names in sorted order.
func (rl *ResourceLoader) Names() []string {
	names := make([]string, 0, len(rl.Levels))
	for n := range rl.Levels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadLevel reads and parses one level file.
func LoadLevel(path string) (*LevelDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	def, err := ParseLevel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// LoadDir parses every .yaml, .yml and .json file in dir. Level names must
// be unique across files.
func LoadDir(dir string) (map[string]*LevelDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read level dir: %w", err)
	}
	levels := make(map[string]*LevelDef)
	for _, e := range entries {
		if e.IsDir() || !isLevelFile(e.Name()) {
			continue
		}
		def, err := LoadLevel(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := levels[def.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate level name %q in %s", ErrInvalidLevel, def.Name, e.Name())
		}
		levels[def.Name] = def
	}
	return levels, nil
}

func isLevelFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
