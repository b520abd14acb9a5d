package world

// Connectivity recomputes derived network state for a grid. It must not
// mutate its input; the returned snapshot is adopted by the caller.
type Connectivity func(g *Grid) []Tile

// UtilityNetwork returns a Connectivity that floods power outward from every
// completed source building through orthogonally adjacent completed
// buildings. Tiles under construction neither carry nor receive power.
func UtilityNetwork(isSource func(BuildingType) bool) Connectivity {
	return func(g *Grid) []Tile {
		out := g.Snapshot()
		queue := make([]int, 0, 64)
		for i := range out {
			out[i].Powered = false
			if out[i].Completed() && isSource(out[i].Building) {
				out[i].Powered = true
				queue = append(queue, i)
			}
		}

		var nbuf [4]int
		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			for _, n := range g.Neighbors4(nbuf[:0], idx) {
				t := &out[n]
				if t.Powered || !t.Completed() {
					continue
				}
				t.Powered = true
				queue = append(queue, n)
			}
		}
		return out
	}
}

// NoConnectivity leaves the grid unchanged.
func NoConnectivity(g *Grid) []Tile {
	return g.Snapshot()
}
