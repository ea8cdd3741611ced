// Package grid derives a uniform tile index from continuous level bounds
// and static wall geometry. It answers wall/bounds queries, converts between
// continuous and tile coordinates, and carries the visited/goal scratch
// marks used by the guard path search.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/kasuganosora/stealthguard/game/geom"
)

var (
	// ErrConfiguration is returned when level geometry resolves to a
	// degenerate grid. It is fatal for level construction.
	ErrConfiguration = errors.New("grid: invalid configuration")
	// ErrOutOfRange is returned by mutators given a tile outside the grid.
	ErrOutOfRange = errors.New("grid: coordinate out of range")
)

// RasterEpsilon insets obstacle corners (in tile units) before flooring so
// that an obstacle edge lying exactly on a tile boundary does not claim the
// neighbouring tile. The same inset is used on both the min and max corner.
const RasterEpsilon = 1e-4

// Tile is a read-only view of one cell.
type Tile struct {
	Wall    bool
	Visited bool
	Goal    bool
}

// Grid is the tile index for one level.
type Grid struct {
	width, height int
	tileSize      float64
	bounds        geom.Rect
	scale         geom.Vec2
	walls         []bool // row-major, width*height
	marks         *Scratch
}

// Build derives a Grid from the level bounds and static wall obstacles.
// cellsPerUnit is the number of tiles per continuous unit; scale is the
// continuous-to-screen factor used only by the screen converters.
func Build(bounds geom.Rect, scale geom.Vec2, cellsPerUnit float64, walls []geom.Rect) (*Grid, error) {
	if cellsPerUnit <= 0 || math.IsNaN(cellsPerUnit) || math.IsInf(cellsPerUnit, 0) {
		return nil, fmt.Errorf("%w: cells per unit %v", ErrConfiguration, cellsPerUnit)
	}
	if scale.X <= 0 || scale.Y <= 0 {
		return nil, fmt.Errorf("%w: scale %v", ErrConfiguration, scale)
	}
	w := int(math.Ceil(bounds.Width()*cellsPerUnit - RasterEpsilon))
	h := int(math.Ceil(bounds.Height()*cellsPerUnit - RasterEpsilon))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrConfiguration, w, h)
	}
	g := &Grid{
		width:    w,
		height:   h,
		tileSize: 1 / cellsPerUnit,
		bounds:   bounds,
		scale:    scale,
		walls:    make([]bool, w*h),
	}
	g.marks = g.NewScratch()
	g.MarkWalls(walls)
	return g, nil
}

func (g *Grid) Width() int { return g.width }
func (g *Grid) Height() int { return g.height }
func (g *Grid) TileSize() float64 { return g.tileSize }
func (g *Grid) Bounds() geom.Rect { return g.bounds }
func (g *Grid) Scale() geom.Vec2 { return g.scale }
func (g *Grid) index(x, y int) int { return y*g.width + x }

// MarkWalls rasterizes each obstacle onto the tiles it covers. Obstacles
// reaching past the grid are clipped.
func (g *Grid) MarkWalls(walls []geom.Rect) {
	origin := g.bounds.Min()
	for _, r := range walls {
		lo := r.Min().Sub(origin).Scale(1 / g.tileSize)
		hi := r.Max().Sub(origin).Scale(1 / g.tileSize)
		x0 := max(int(math.Floor(lo.X+RasterEpsilon)), 0)
		y0 := max(int(math.Floor(lo.Y+RasterEpsilon)), 0)
		x1 := min(int(math.Floor(hi.X-RasterEpsilon)), g.width-1)
		y1 := min(int(math.Floor(hi.Y-RasterEpsilon)), g.height-1)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				g.walls[g.index(x, y)] = true
			}
		}
	}
}

// ResetGrid returns every tile to its default state: no walls, no marks.
func (g *Grid) ResetGrid() {
	clear(g.walls)
	g.marks.reset()
}

// InBounds reports whether (x, y) is a tile of this grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// IsWall reports whether (x, y) is a wall. Tiles outside the grid are
// treated as walls.
func (g *Grid) IsWall(x, y int) bool {
	if !g.InBounds(x, y) {
		return true
	}
	return g.walls[g.index(x, y)]
}

// SetWall marks or unmarks a single tile as a wall.
func (g *Grid) SetWall(x, y int, wall bool) error {
	if !g.InBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, x, y)
	}
	g.walls[g.index(x, y)] = wall
	return nil
}

// Tile returns a snapshot of the tile at (x, y) as seen by the grid's own
// scratch marks.
func (g *Grid) Tile(x, y int) (Tile, error) {
	if !g.InBounds(x, y) {
		return Tile{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, x, y)
	}
	return Tile{
		Wall:    g.walls[g.index(x, y)],
		Visited: g.marks.IsVisited(x, y),
		Goal:    g.marks.IsGoal(x, y),
	}, nil
}

// The mark methods below operate on the grid's built-in scratch. Callers
// that search the same grid from several agents should use NewScratch.

func (g *Grid) SetGoal(x, y int) error { return g.marks.SetGoal(x, y) }
func (g *Grid) SetVisited(x, y int) error { return g.marks.SetVisited(x, y) }
func (g *Grid) IsVisited(x, y int) bool { return g.marks.IsVisited(x, y) }
func (g *Grid) IsGoal(x, y int) bool { return g.marks.IsGoal(x, y) }
func (g *Grid) ClearMarks() { g.marks.ClearMarks() }

// Marks returns the grid's built-in scratch.
func (g *Grid) Marks() *Scratch { return g.marks }

// WorldToGrid maps a continuous position to the tile containing it. The
// result may lie outside the grid; check it with InBounds.
func (g *Grid) WorldToGrid(p geom.Vec2) (int, int) {
	origin := g.bounds.Min()
	return int(math.Floor((p.X - origin.X) / g.tileSize)),
		int(math.Floor((p.Y - origin.Y) / g.tileSize))
}

// GridToWorld returns the continuous centre of tile (x, y).
func (g *Grid) GridToWorld(x, y int) geom.Vec2 {
	origin := g.bounds.Min()
	return geom.Vec2{
		X: origin.X + (float64(x)+0.5)*g.tileSize,
		Y: origin.Y + (float64(y)+0.5)*g.tileSize,
	}
}

// ScreenToGrid maps a screen position to a tile.
func (g *Grid) ScreenToGrid(p geom.Vec2) (int, int) {
	return g.WorldToGrid(geom.Vec2{X: p.X / g.scale.X, Y: p.Y / g.scale.Y})
}

// GridToScreen returns the screen-space centre of tile (x, y).
func (g *Grid) GridToScreen(x, y int) geom.Vec2 {
	return g.GridToWorld(x, y).Mul(g.scale)
}
