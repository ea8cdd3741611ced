package ai

import (
	"math/rand"
	"testing"
	"time"

	"github.com/kasuganosora/stealthguard/game/geom"
	"github.com/kasuganosora/stealthguard/game/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection_Delta(t *testing.T) {
	tests := []struct {
		dir    Direction
		dx, dy int
		name   string
	}{
		{Right, 1, 0, "right"},
		{Up, 0, 1, "up"},
		{Left, -1, 0, "left"},
		{Down, 0, -1, "down"},
		{NoMove, 0, 0, "none"},
	}
	for _, tc := range tests {
		dx, dy := tc.dir.Delta()
		assert.Equal(t, tc.dx, dx, tc.name)
		assert.Equal(t, tc.dy, dy, tc.name)
		assert.Equal(t, tc.name, tc.dir.String())
		assert.Equal(t, geom.V(float64(tc.dx), float64(tc.dy)), tc.dir.Vec())
	}
}

func TestFirstStep_OpenGridShortestFirstStep(t *testing.T) {
	g := openGrid(t, 5, 5)
	require.NoError(t, g.SetGoal(4, 4))

	dir, err := FirstStep(g, nil, center(0, 0))
	require.NoError(t, err)
	assert.Contains(t, []Direction{Right, Up}, dir)

	again, err := FirstStep(g, nil, center(0, 0))
	require.NoError(t, err)
	assert.Equal(t, dir, again, "search must be deterministic")
}

func TestFirstStep_EachDirection(t *testing.T) {
	tests := []struct {
		goalX, goalY int
		want         Direction
	}{
		{4, 2, Right},
		{2, 4, Up},
		{0, 2, Left},
		{2, 0, Down},
	}
	for _, tc := range tests {
		g := openGrid(t, 5, 5)
		require.NoError(t, g.SetGoal(tc.goalX, tc.goalY))
		dir, err := FirstStep(g, nil, center(2, 2))
		require.NoError(t, err)
		assert.Equal(t, tc.want, dir)
	}
}

func TestFirstStep_RoutesAroundWall(t *testing.T) {
	// .....
	// .###.
	// S.#.G   the straight line is blocked; the only way is over the top
	g := openGrid(t, 5, 3, wallTile(2, 0), wallTile(1, 1), wallTile(2, 1), wallTile(3, 1))
	require.NoError(t, g.SetGoal(4, 0))

	dir, err := FirstStep(g, nil, center(0, 0))
	require.NoError(t, err)
	assert.Equal(t, Up, dir)
}

func TestFirstStep_NoPath(t *testing.T) {
	// Goal (4,4) is boxed in by walls on both open neighbours.
	g := openGrid(t, 5, 5, wallTile(3, 4), wallTile(4, 3))
	require.NoError(t, g.SetGoal(4, 4))

	dir, err := FirstStep(g, nil, center(0, 0))
	require.NoError(t, err)
	assert.Equal(t, NoMove, dir)
}

func TestFirstStep_GoalIsWall(t *testing.T) {
	g := openGrid(t, 3, 3, wallTile(2, 2))
	require.NoError(t, g.SetGoal(2, 2))
	dir, err := FirstStep(g, nil, center(0, 0))
	require.NoError(t, err)
	assert.Equal(t, NoMove, dir)
}

func TestFirstStep_NoGoal(t *testing.T) {
	g := openGrid(t, 3, 3)
	dir, err := FirstStep(g, nil, center(1, 1))
	require.NoError(t, err)
	assert.Equal(t, NoMove, dir)
}

func TestFirstStep_AlreadyOnGoal(t *testing.T) {
	g := openGrid(t, 3, 3)
	require.NoError(t, g.SetGoal(1, 1))
	dir, err := FirstStep(g, nil, geom.V(1.2, 1.9))
	require.NoError(t, err)
	assert.Equal(t, NoMove, dir)
}

func TestFirstStep_StartOffGrid(t *testing.T) {
	g := openGrid(t, 3, 3)
	require.NoError(t, g.SetGoal(1, 1))
	dir, err := FirstStep(g, nil, geom.V(-0.5, 1))
	assert.ErrorIs(t, err, grid.ErrOutOfRange)
	assert.Equal(t, NoMove, dir)
}

func TestFirstStep_RepeatedSearchesDoNotLeakVisited(t *testing.T) {
	g := openGrid(t, 4, 1)
	require.NoError(t, g.SetGoal(3, 0))
	for i := 0; i < 3; i++ {
		dir, err := FirstStep(g, nil, center(0, 0))
		require.NoError(t, err)
		assert.Equal(t, Right, dir, "search %d", i)
	}
}

func TestFirstStep_PrivateScratch(t *testing.T) {
	g := openGrid(t, 5, 5)
	a, b := g.NewScratch(), g.NewScratch()
	require.NoError(t, a.SetGoal(4, 2))
	require.NoError(t, b.SetGoal(0, 2))

	da, err := FirstStep(g, a, center(2, 2))
	require.NoError(t, err)
	db, err := FirstStep(g, b, center(2, 2))
	require.NoError(t, err)

	assert.Equal(t, Right, da)
	assert.Equal(t, Left, db)
	assert.False(t, g.IsGoal(4, 2))
}

func TestFirstStep_StepShortensPath(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		const w, h = 9, 7
		var walls []geom.Rect
		for i := 0; i < 15; i++ {
			walls = append(walls, wallTile(rng.Intn(w), rng.Intn(h)))
		}
		g := openGrid(t, w, h, walls...)

		gx, gy := rng.Intn(w), rng.Intn(h)
		sx, sy := rng.Intn(w), rng.Intn(h)
		if g.IsWall(gx, gy) || g.IsWall(sx, sy) {
			continue
		}
		require.NoError(t, g.SetGoal(gx, gy))
		dir, err := FirstStep(g, nil, center(sx, sy))
		require.NoError(t, err)

		dist := bfsDistances(g, gx, gy)
		d0, reachable := dist[[2]int{sx, sy}]
		switch {
		case !reachable || d0 == 0:
			assert.Equal(t, NoMove, dir, "trial %d", trial)
		default:
			require.NotEqual(t, NoMove, dir, "trial %d", trial)
			dx, dy := dir.Delta()
			d1, ok := dist[[2]int{sx + dx, sy + dy}]
			require.True(t, ok, "trial %d: step leads off the reachable set", trial)
			assert.Equal(t, d0-1, d1, "trial %d", trial)
		}
	}
}

func TestFirstStep_ScratchFromOtherGrid(t *testing.T) {
	// The goal corner is sealed off, so a search that cannot record visits
	// outside a small scratch would never drain its queue.
	g := openGrid(t, 6, 6, wallTile(1, 0), wallTile(1, 1), wallTile(0, 1))
	small := openGrid(t, 2, 2).NewScratch()
	require.NoError(t, small.SetGoal(0, 0))

	type result struct {
		dir Direction
		err error
	}
	done := make(chan result, 1)
	go func() {
		dir, err := FirstStep(g, small, center(5, 5))
		done <- result{dir, err}
	}()

	select {
	case res := <-done:
		assert.ErrorIs(t, res.err, grid.ErrConfiguration)
		assert.Equal(t, NoMove, res.dir)
	case <-time.After(3 * time.Second):
		t.Fatal("FirstStep did not return with a scratch sized for another grid")
	}
}

func TestFirstStep_ScratchFromSameSizedGrid(t *testing.T) {
	g := openGrid(t, 4, 4)
	other := openGrid(t, 4, 4).NewScratch()
	require.NoError(t, other.SetGoal(0, 3))

	dir, err := FirstStep(g, other, center(3, 3))
	require.NoError(t, err)
	assert.Equal(t, Left, dir)
}
