package ai

import (
	"testing"

	"github.com/kasuganosora/stealthguard/game/geom"
	"github.com/kasuganosora/stealthguard/game/grid"
	"github.com/stretchr/testify/require"
)

// openGrid builds a w x h grid with tileSize 1 and origin (0,0).
func openGrid(t *testing.T, w, h int, walls ...geom.Rect) *grid.Grid {
	t.Helper()
	g, err := grid.Build(geom.RectFromOrigin(0, 0, float64(w), float64(h)), geom.V(1, 1), 1, walls)
	require.NoError(t, err)
	return g
}

// wallTile returns an obstacle covering exactly tile (x, y).
func wallTile(x, y int) geom.Rect {
	return geom.RectFromOrigin(float64(x), float64(y), 1, 1)
}

// center returns the continuous centre of tile (x, y) on a unit grid.
func center(x, y int) geom.Vec2 {
	return geom.V(float64(x)+0.5, float64(y)+0.5)
}

// bfsDistances computes reference shortest-path lengths to (gx, gy).
func bfsDistances(g *grid.Grid, gx, gy int) map[[2]int]int {
	dist := map[[2]int]int{{gx, gy}: 0}
	queue := [][2]int{{gx, gy}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range searchOrder {
			dx, dy := d.Delta()
			n := [2]int{cur[0] + dx, cur[1] + dy}
			if g.IsWall(n[0], n[1]) {
				continue
			}
			if _, seen := dist[n]; seen {
				continue
			}
			dist[n] = dist[cur] + 1
			queue = append(queue, n)
		}
	}
	return dist
}

func testParams() Params {
	p := DefaultParams()
	p.BaseChaseTicks = 5
	return p
}
