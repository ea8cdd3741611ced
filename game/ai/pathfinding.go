package ai

import (
	"fmt"

	"github.com/kasuganosora/stealthguard/game/geom"
	"github.com/kasuganosora/stealthguard/game/grid"
)

// Direction is a single cardinal grid step.
type Direction int

const (
	NoMove Direction = iota
	Right
	Up
	Left
	Down
)

// searchOrder is the fixed neighbour expansion order. It breaks ties
// between equally short paths.
var searchOrder = [4]Direction{Right, Up, Left, Down}

// Delta returns the tile offset of one step in d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Right:
		return 1, 0
	case Up:
		return 0, 1
	case Left:
		return -1, 0
	case Down:
		return 0, -1
	}
	return 0, 0
}

// Vec returns the unit vector for d in world space (+Y is up).
func (d Direction) Vec() geom.Vec2 {
	dx, dy := d.Delta()
	return geom.Vec2{X: float64(dx), Y: float64(dy)}
}

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Up:
		return "up"
	case Left:
		return "left"
	case Down:
		return "down"
	}
	return "none"
}

type bfsNode struct {
	x, y  int
	first Direction
}

// FirstStep runs a breadth-first search over the 4-connected open tiles of
// g, starting from the tile containing start, toward the goal marked in s.
// Only the first step of a shortest path is returned.
//
// Returns NoMove when no goal is marked, when start already lies on the
// goal, or when the goal cannot be reached. An error wrapping
// grid.ErrOutOfRange is returned when start is outside the grid, and one
// wrapping grid.ErrConfiguration when s was not sized for g.
// A nil s searches with the grid's built-in marks.
func FirstStep(g *grid.Grid, s *grid.Scratch, start geom.Vec2) (Direction, error) {
	sx, sy := g.WorldToGrid(start)
	if !g.InBounds(sx, sy) {
		return NoMove, fmt.Errorf("%w: start %v", grid.ErrOutOfRange, start)
	}
	if s == nil {
		s = g.Marks()
	}
	if !s.Fits(g) {
		return NoMove, fmt.Errorf("%w: scratch does not match %dx%d grid",
			grid.ErrConfiguration, g.Width(), g.Height())
	}
	if _, _, ok := s.Goal(); !ok {
		return NoMove, nil
	}
	s.ClearVisited()
	if s.IsGoal(sx, sy) {
		return NoMove, nil
	}

	if err := s.SetVisited(sx, sy); err != nil {
		return NoMove, err
	}
	queue := make([]bfsNode, 0, 4*(g.Width()+g.Height()))
	for _, d := range searchOrder {
		dx, dy := d.Delta()
		nx, ny := sx+dx, sy+dy
		if g.IsWall(nx, ny) {
			continue
		}
		if err := s.SetVisited(nx, ny); err != nil {
			return NoMove, err
		}
		queue = append(queue, bfsNode{nx, ny, d})
	}

	// Marking at enqueue time keeps the queue in strict BFS layers.
	for head := 0; head < len(queue); head++ {
		n := queue[head]
		if s.IsGoal(n.x, n.y) {
			return n.first, nil
		}
		for _, d := range searchOrder {
			dx, dy := d.Delta()
			nx, ny := n.x+dx, n.y+dy
			if g.IsWall(nx, ny) || s.IsVisited(nx, ny) {
				continue
			}
			if err := s.SetVisited(nx, ny); err != nil {
				return NoMove, err
			}
			queue = append(queue, bfsNode{nx, ny, n.first})
		}
	}
	return NoMove, nil
}
