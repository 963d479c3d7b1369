package game

import (
	"math"
	"math/rand"
)

// Grid is a walkability field in cell units; true means blocked. A grid is
// never mutated after GenerateTerrain returns it.
type Grid struct {
	Width  int
	Height int
	cells  []bool
}

func newGrid(w, h int) *Grid {
	return &Grid{Width: w, Height: h, cells: make([]bool, w*h)}
}

func (g *Grid) idx(x, y int) int { return y*g.Width + x }

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Cell reports whether the cell at integer coordinates is blocked. Out of
// bounds is blocked.
func (g *Grid) Cell(x, y int) bool {
	if g == nil || !g.inBounds(x, y) {
		return true
	}
	return g.cells[g.idx(x, y)]
}

func (g *Grid) set(x, y int, blocked bool) {
	if g.inBounds(x, y) {
		g.cells[g.idx(x, y)] = blocked
	}
}

// Rows renders the grid as strings of '#' and '.', one per row.
func (g *Grid) Rows() []string {
	if g == nil {
		return nil
	}
	rows := make([]string, g.Height)
	line := make([]byte, g.Width)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.cells[g.idx(x, y)] {
				line[x] = '#'
			} else {
				line[x] = '.'
			}
		}
		rows[y] = string(line)
	}
	return rows
}

// GenerateTerrain builds the dune map for a room. The same inputs always
// produce the same grid; randomness comes from a source local to the call.
func GenerateTerrain(width, height float64, seed uint32) *Grid {
	w := clampDim(width, MinGridW)
	h := clampDim(height, MinGridH)
	rng := rand.New(rand.NewSource(int64(seed)))
	g := newGrid(w, h)

	for x := 0; x < w; x++ {
		g.set(x, 0, true)
		g.set(x, h-1, true)
	}
	for y := 0; y < h; y++ {
		g.set(0, y, true)
		g.set(w-1, y, true)
	}

	dunes := max(MinDunes, w*h/DuneArea)
	for i := 0; i < dunes; i++ {
		cx := rng.Intn(w)
		cy := rng.Intn(h)
		rx := 3 + rng.Intn(8)
		ry := 2 + rng.Intn(6)
		g.stampEllipse(cx, cy, rx, ry)
	}

	bumps := max(MinBumps, w*h/BumpArea)
	for i := 0; i < bumps; i++ {
		cx := rng.Intn(w)
		cy := rng.Intn(h)
		rx := 1 + rng.Intn(3)
		ry := 1 + rng.Intn(3)
		g.stampEllipse(cx, cy, rx, ry)
	}

	g.clearDisk(SpawnInset, SpawnInset, SpawnClearR)
	g.clearDisk(w-SpawnInset-1, h-SpawnInset-1, SpawnClearR)
	return g
}

func clampDim(v float64, min int) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return min
	}
	n := int(math.Floor(v))
	if n < min {
		return min
	}
	return n
}

// stampEllipse ORs blocked cells into the grid.
func (g *Grid) stampEllipse(cx, cy, rx, ry int) {
	fx := float64(rx)
	fy := float64(ry)
	for y := cy - ry; y <= cy+ry; y++ {
		for x := cx - rx; x <= cx+rx; x++ {
			dx := float64(x-cx) / fx
			dy := float64(y-cy) / fy
			if dx*dx+dy*dy <= 1 {
				g.set(x, y, true)
			}
		}
	}
}

// clearDisk opens interior cells only; the border stays blocked.
func (g *Grid) clearDisk(cx, cy, r int) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if x <= 0 || y <= 0 || x >= g.Width-1 || y >= g.Height-1 {
				continue
			}
			dx := x - cx
			dy := y - cy
			if dx*dx+dy*dy <= r*r {
				g.set(x, y, false)
			}
		}
	}
}

// IsBlocked floors world coordinates onto the grid.
func (g *Grid) IsBlocked(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return true
	}
	return g.Cell(int(math.Floor(x)), int(math.Floor(y)))
}

// NearestOpen returns p unchanged when it is walkable, otherwise the center
// of the closest open cell by Chebyshev ring distance.
func (g *Grid) NearestOpen(p Vec2) Vec2 {
	if g == nil {
		return Vec2{X: DefaultSpawnXY, Y: DefaultSpawnXY}
	}
	if !g.IsBlocked(p.X, p.Y) {
		return p
	}
	cx := int(math.Floor(Clamp(p.X, -1, float64(g.Width))))
	cy := int(math.Floor(Clamp(p.Y, -1, float64(g.Height))))
	limit := max(g.Width, g.Height)
	for r := 1; r <= limit; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dy) != r {
					continue
				}
				x, y := cx+dx, cy+dy
				if !g.Cell(x, y) {
					return cellCenter(x, y)
				}
			}
		}
	}
	for y := 1; y < g.Height-1; y++ {
		for x := 1; x < g.Width-1; x++ {
			if !g.Cell(x, y) {
				return cellCenter(x, y)
			}
		}
	}
	return Vec2{X: DefaultSpawnXY, Y: DefaultSpawnXY}
}

// LineOfSight marches from a to b and fails on the first blocked sample.
func (g *Grid) LineOfSight(a, b Vec2) bool {
	d := b.Sub(a)
	dist := d.Len()
	if dist <= 1e-9 {
		return true
	}
	dir := d.Scale(1 / dist)
	for s := LOSStep; ; s += LOSStep {
		if s >= dist {
			return !g.IsBlocked(b.X, b.Y)
		}
		p := a.Add(dir.Scale(s))
		if g.IsBlocked(p.X, p.Y) {
			return false
		}
	}
}

// clampInterior keeps a point inside the border cells with a small margin.
func (g *Grid) clampInterior(p Vec2) Vec2 {
	return Vec2{
		X: Clamp(p.X, 1+ClampMargin, float64(g.Width-1)-ClampMargin),
		Y: Clamp(p.Y, 1+ClampMargin, float64(g.Height-1)-ClampMargin),
	}
}

func cellCenter(x, y int) Vec2 {
	return Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
