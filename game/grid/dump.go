package grid

import "strings"

// Dump renders the wall map as text: '#' wall, '.' open, 'G' goal. The
// first line is the highest row so the output reads like the level.
func (g *Grid) Dump() string {
	var b strings.Builder
	b.Grow((g.width + 1) * g.height)
	for y := g.height - 1; y >= 0; y-- {
		for x := 0; x < g.width; x++ {
			switch {
			case g.marks.IsGoal(x, y):
				b.WriteByte('G')
			case g.walls[g.index(x, y)]:
				b.WriteByte('#')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
