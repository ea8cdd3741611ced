package grid

import "fmt"

// Scratch holds the per-search visited and goal marks for one Grid.
//
// Visited marks are generation stamps, so clearing them is O(1). Only one
// goal index is stored, which makes setting a new goal clear the old one.
type Scratch struct {
	width, height int
	visited       []uint32
	gen           uint32
	goal          int
}

// NewScratch allocates private scratch marks sized to g. Each agent that
// searches g within a tick should own one.
func (g *Grid) NewScratch() *Scratch {
	return &Scratch{
		width:   g.width,
		height:  g.height,
		visited: make([]uint32, g.width*g.height),
		gen:     1,
		goal:    -1,
	}
}

// Fits reports whether s was sized for g. A scratch from another grid
// cannot record visits outside its own extent.
func (s *Scratch) Fits(g *Grid) bool {
	return s.width == g.width && s.height == g.height
}

func (s *Scratch) inBounds(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

// SetGoal clears any previous goal and marks (x, y).
func (s *Scratch) SetGoal(x, y int) error {
	if !s.inBounds(x, y) {
		return fmt.Errorf("%w: goal (%d,%d)", ErrOutOfRange, x, y)
	}
	s.goal = y*s.width + x
	return nil
}

// Goal returns the marked goal tile, if any.
func (s *Scratch) Goal() (x, y int, ok bool) {
	if s.goal < 0 {
		return 0, 0, false
	}
	return s.goal % s.width, s.goal / s.width, true
}

// ClearGoal removes the goal mark.
func (s *Scratch) ClearGoal() { s.goal = -1 }

func (s *Scratch) IsGoal(x, y int) bool {
	return s.inBounds(x, y) && s.goal == y*s.width+x
}

func (s *Scratch) SetVisited(x, y int) error {
	if !s.inBounds(x, y) {
		return fmt.Errorf("%w: visit (%d,%d)", ErrOutOfRange, x, y)
	}
	s.visited[y*s.width+x] = s.gen
	return nil
}

func (s *Scratch) IsVisited(x, y int) bool {
	return s.inBounds(x, y) && s.visited[y*s.width+x] == s.gen
}

// ClearVisited drops every visited mark and keeps the goal.
func (s *Scratch) ClearVisited() {
	s.gen++
	if s.gen == 0 {
		// stamp wrapped; old stamps could alias the new generation
		clear(s.visited)
		s.gen = 1
	}
}

// ClearMarks drops every visited mark and the goal.
func (s *Scratch) ClearMarks() {
	s.ClearVisited()
	s.goal = -1
}

func (s *Scratch) reset() {
	clear(s.visited)
	s.gen = 1
	s.goal = -1
}
