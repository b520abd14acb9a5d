// World generation using layered simplex noise.
// Seeds foliage, ore deposits and contaminated ground on an empty grid.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width  int   `mapstructure:"width" validate:"min=8,max=1024"`
	Height int   `mapstructure:"height" validate:"min=8,max=1024"`
	Seed   int64 `mapstructure:"seed"` // 0 = random

	TreeLevel          float64 `mapstructure:"tree_level" validate:"gte=0,lte=1"`          // Noise threshold for trees
	OreLevel           float64 `mapstructure:"ore_level" validate:"gte=0,lte=1"`           // Noise threshold for ore
	ContaminationLevel float64 `mapstructure:"contamination_level" validate:"gte=0,lte=1"` // Noise threshold for contamination
	ClearRadius        int     `mapstructure:"clear_radius" validate:"gte=0"`              // Empty landing zone around the centre
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:              64,
		Height:             64,
		Seed:               0,
		TreeLevel:          0.68,
		OreLevel:           0.74,
		ContaminationLevel: 0.80,
		ClearRadius:        6,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:              16,
		Height:             16,
		Seed:               42,
		TreeLevel:          0.70,
		OreLevel:           0.75,
		ContaminationLevel: 0.85,
		ClearRadius:        3,
	}
}

// Generate creates a grid with overlays derived from independent noise
// layers. All tiles start unexplored except the landing zone.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	treeNoise := opensimplex.NewNormalized(seed)
	oreNoise := opensimplex.NewNormalized(seed + 1)
	dirtNoise := opensimplex.NewNormalized(seed + 2)

	g := NewGrid(cfg.Width, cfg.Height)
	cx, cz := cfg.Width/2, cfg.Height/2

	for z := 0; z < cfg.Height; z++ {
		for x := 0; x < cfg.Width; x++ {
			t := &g.Tiles[g.Index(x, z)]

			dx, dz := float64(x-cx), float64(z-cz)
			if math.Sqrt(dx*dx+dz*dz) <= float64(cfg.ClearRadius) {
				t.Explored = true
				continue
			}

			fx, fz := float64(x), float64(z)

			// Ore takes precedence over foliage; contamination is a rarer
			// blight that can sit under either.
			switch {
			case octaveNoise(oreNoise, fx, fz, 3, 0.12, 0.5) > cfg.OreLevel:
				t.Overlay = OverlayOre
			case octaveNoise(dirtNoise, fx, fz, 2, 0.07, 0.5) > cfg.ContaminationLevel:
				t.Overlay = OverlayContamination
			case octaveNoise(treeNoise, fx, fz, 4, 0.09, 0.5) > cfg.TreeLevel:
				t.Overlay = OverlayTree
			}
		}
	}

	return g
}

// octaveNoise sums several noise octaves into a normalised [0, 1] value.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// OverlayCounts returns the number of tiles per overlay.
func OverlayCounts(g *Grid) map[Overlay]int {
	counts := make(map[Overlay]int)
	for i := range g.Tiles {
		counts[g.Tiles[i].Overlay]++
	}
	return counts
}

// FreeCellsNear returns up to n cells without building or overlay, scanning
// outward ring by ring from (x, z).
func FreeCellsNear(g *Grid, x, z, n int) []int {
	out := make([]int, 0, n)
	maxR := g.Width
	if g.Height > maxR {
		maxR = g.Height
	}
	for r := 0; r <= maxR && len(out) < n; r++ {
		for dz := -r; dz <= r && len(out) < n; dz++ {
			for dx := -r; dx <= r && len(out) < n; dx++ {
				if abs(dx) != r && abs(dz) != r {
					continue
				}
				px, pz := x+dx, z+dz
				if !g.InBounds(px, pz) {
					continue
				}
				t := g.At(g.Index(px, pz))
				if t.Building == BuildingNone && t.Overlay == OverlayNone {
					out = append(out, t.Index)
				}
			}
		}
	}
	return out
}
