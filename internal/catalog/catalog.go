// Package catalog loads the playable world templates and the judge's hard
// rules. The built-in catalog is embedded; WORLDS_FILE can replace it.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/adventure-engine/pkg/settlement"
)

// DefaultWorld is used when a start request names no world.
const DefaultWorld = "mistwood"

// PowerPlaceholder is replaced with the player's power in a template.
const PowerPlaceholder = "{{PLAYER_POWER}}"

// GeneratedPrefix marks world ids created at runtime rather than listed in
// a catalog.
const GeneratedPrefix = "gen_"

// ErrUnknownWorld is returned by Lookup for keys that match no world.
var ErrUnknownWorld = errors.New("Unknown world_template_id")

//go:embed data
var embedded embed.FS

// World is a playable world with its template text loaded.
type World struct {
	Key             string                `json:"key"`
	WorldID         string                `json:"world_id"`
	Name            string                `json:"name"`
	Template        string                `json:"-"`
	AllowSave       bool                  `json:"allow_save"`
	DiscoveryTarget int                   `json:"discovery_target"`
	LootPool        []settlement.LootItem `json:"loot_pool"`
}

type fileFormat struct {
	HardRules string               `yaml:"hard_rules"`
	Worlds    map[string]worldFile `yaml:"worlds"`
}

type worldFile struct {
	WorldID         string                `yaml:"world_id"`
	Name            string                `yaml:"name"`
	Template        string                `yaml:"template"`
	AllowSave       bool                  `yaml:"allow_save"`
	DiscoveryTarget int                   `yaml:"discovery_target"`
	LootPool        []settlement.LootItem `yaml:"loot_pool"`
}

// Catalog is an immutable set of worlds.
type Catalog struct {
	hardRules string
	worlds    map[string]*World
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub, "worlds.yaml")
}

// LoadFile reads a catalog from disk. Paths inside it resolve against the
// file's directory.
func LoadFile(file string) (*Catalog, error) {
	return Load(os.DirFS(filepath.Dir(file)), filepath.Base(file))
}

// Open returns the catalog at file, or the embedded one when file is "".
func Open(file string) (*Catalog, error) {
	if file == "" {
		return Default()
	}
	return LoadFile(file)
}

// Load parses the catalog file name in fsys and reads every template.
func Load(fsys fs.FS, name string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", name, err)
	}

	base := path.Dir(name)
	c := &Catalog{worlds: make(map[string]*World, len(f.Worlds))}

	if f.HardRules != "" {
		rules, err := fs.ReadFile(fsys, path.Join(base, f.HardRules))
		if err != nil {
			return nil, fmt.Errorf("read hard rules: %w", err)
		}
		c.hardRules = string(rules)
	}

	for key, w := range f.Worlds {
		if w.Template == "" {
			return nil, fmt.Errorf("world %q has no template", key)
		}
		tmpl, err := fs.ReadFile(fsys, path.Join(base, w.Template))
		if err != nil {
			return nil, fmt.Errorf("read template for %q: %w", key, err)
		}
		loot := w.LootPool
		if loot == nil {
			loot = []settlement.LootItem{}
		}
		c.worlds[key] = &World{
			Key:             key,
			WorldID:         w.WorldID,
			Name:            w.Name,
			Template:        string(tmpl),
			AllowSave:       w.AllowSave,
			DiscoveryTarget: w.DiscoveryTarget,
			LootPool:        loot,
		}
	}
	return c, nil
}

// Lookup finds a world by catalog key, then by world_id.
func (c *Catalog) Lookup(key string) (*World, error) {
	if w, ok := c.worlds[key]; ok {
		return w, nil
	}
	for _, w := range c.worlds {
		if w.WorldID == key {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownWorld, key)
}

// HardRules returns the judge rules shared by every world.
func (c *Catalog) HardRules() string {
	return c.hardRules
}

// LootPool returns the rewards of the world with the given key or world_id,
// or nil when the world is unknown.
func (c *Catalog) LootPool(key string) []settlement.LootItem {
	w, err := c.Lookup(key)
	if err != nil {
		return nil
	}
	return w.LootPool
}

// Worlds returns every world ordered by key.
func (c *Catalog) Worlds() []*World {
	keys := make([]string, 0, len(c.worlds))
	for k := range c.worlds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*World, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.worlds[k])
	}
	return out
}

// Validate reports every problem found in the catalog.
func (c *Catalog) Validate() []error {
	var errs []error
	if strings.TrimSpace(c.hardRules) == "" {
		errs = append(errs, errors.New("hard rules are empty"))
	}
	if len(c.worlds) == 0 {
		errs = append(errs, errors.New("catalog has no worlds"))
	}

	seenIDs := map[string]string{}
	for _, w := range c.Worlds() {
		if w.WorldID == "" {
			errs = append(errs, fmt.Errorf("world %q: world_id is required", w.Key))
		} else if other, dup := seenIDs[w.WorldID]; dup {
			errs = append(errs, fmt.Errorf("world %q: world_id %q already used by %q", w.Key, w.WorldID, other))
		} else {
			seenIDs[w.WorldID] = w.Key
		}
		if strings.HasPrefix(w.Key, GeneratedPrefix) {
			errs = append(errs, fmt.Errorf("world %q: the gen_ prefix is reserved for generated worlds", w.Key))
		}
		if strings.TrimSpace(w.Template) == "" {
			errs = append(errs, fmt.Errorf("world %q: template is empty", w.Key))
		} else if !strings.Contains(w.Template, PowerPlaceholder) {
			errs = append(errs, fmt.Errorf("world %q: template lacks %s", w.Key, PowerPlaceholder))
		}

		seenLoot := map[string]bool{}
		for _, l := range w.LootPool {
			switch {
			case l.ID == "" || l.Name == "":
				errs = append(errs, fmt.Errorf("world %q: loot entries need an id and a name", w.Key))
			case seenLoot[l.ID]:
				errs = append(errs, fmt.Errorf("world %q: duplicate loot id %q", w.Key, l.ID))
			case !l.Type.Valid():
				errs = append(errs, fmt.Errorf("world %q: loot %q has invalid type %q", w.Key, l.ID, l.Type))
			}
			seenLoot[l.ID] = true
		}
	}
	return errs
}

// RenderTemplate replaces the first power placeholder with power.
func RenderTemplate(template string, power int) string {
	return strings.Replace(template, PowerPlaceholder, fmt.Sprint(power), 1)
}
