// Package buildings holds the static building table: footprint, build time
// and behavioural category per building type.
package buildings

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/mini-colony/internal/world"
)

// Category groups buildings by what agents use them for.
type Category string

const (
	CategoryRest           Category = "rest"
	CategoryFood           Category = "food"
	CategoryUtility        Category = "utility"
	CategoryStorage        Category = "storage"
	CategoryInfrastructure Category = "infrastructure"
)

// Def is one row of the building table.
type Def struct {
	Type      world.BuildingType `yaml:"type" json:"type"`
	Name      string             `yaml:"name" json:"name"`
	Width     int                `yaml:"width" json:"width"`
	Depth     int                `yaml:"depth" json:"depth"`
	BuildTime float64            `yaml:"build_time" json:"build_time"` // Work units
	Category  Category           `yaml:"category" json:"category"`
	Solid     bool               `yaml:"solid,omitempty" json:"solid,omitempty"`   // Blocks movement once placed
	Source    bool               `yaml:"source,omitempty" json:"source,omitempty"` // Feeds the utility network
}

// Catalog is the loaded building table.
type Catalog struct {
	defs map[world.BuildingType]Def
}

type catalogFile struct {
	Buildings []Def `yaml:"buildings"`
}

//go:embed buildings.yaml
var defaultYAML []byte

// Default returns the built-in building table.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded buildings.yaml: %v", err))
	}
	return c
}

// Load reads a building table from path. An empty path yields the default.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML building table.
func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("buildings.yaml: %w", err)
	}
	c := &Catalog{defs: make(map[world.BuildingType]Def, len(f.Buildings))}
	for _, d := range f.Buildings {
		if d.Type == world.BuildingNone {
			return nil, fmt.Errorf("building with empty type")
		}
		if d.Width < 1 || d.Depth < 1 {
			return nil, fmt.Errorf("building %q: footprint %dx%d", d.Type, d.Width, d.Depth)
		}
		if d.BuildTime < 0 {
			return nil, fmt.Errorf("building %q: negative build time", d.Type)
		}
		if _, dup := c.defs[d.Type]; dup {
			return nil, fmt.Errorf("building %q defined twice", d.Type)
		}
		c.defs[d.Type] = d
	}
	return c, nil
}

// Lookup returns the definition for t.
func (c *Catalog) Lookup(t world.BuildingType) (Def, bool) {
	d, ok := c.defs[t]
	return d, ok
}

// Is reports whether t belongs to category cat.
func (c *Catalog) Is(t world.BuildingType, cat Category) bool {
	d, ok := c.defs[t]
	return ok && d.Category == cat
}

// IsSource reports whether t feeds the utility network.
func (c *Catalog) IsSource(t world.BuildingType) bool {
	d, ok := c.defs[t]
	return ok && d.Source
}

// IsSolid reports whether t blocks movement.
func (c *Catalog) IsSolid(t world.BuildingType) bool {
	d, ok := c.defs[t]
	return ok && d.Solid
}

// All returns every definition sorted by type.
func (c *Catalog) All() []Def {
	out := make([]Def, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
