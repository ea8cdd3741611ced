package world

import (
	"testing"
	"time"

	"github.com/kasuganosora/stealthguard/game/ai"
	"github.com/kasuganosora/stealthguard/resource"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger {
	return zap.NewNop()
}

func testConfig() LevelConfig {
	p := ai.DefaultParams()
	p.BaseChaseTicks = 5
	return LevelConfig{Params: p, TickInterval: 50 * time.Millisecond}
}

// corridorDef is an open 8x3 level with one guard at (1.5,1.5).
func corridorDef(facingDeg float64) *resource.LevelDef {
	return &resource.LevelDef{
		Name:         "corridor",
		Bounds:       resource.Bounds{Width: 8, Height: 3},
		Scale:        resource.Point{X: 1, Y: 1},
		CellsPerUnit: 1,
		Guards: []resource.GuardDef{
			{ID: "g1", Position: resource.Point{X: 1.5, Y: 1.5}, Facing: facingDeg, Force: 4},
		},
		Targets: []resource.TargetDef{
			{Name: "gar", Position: resource.Point{X: 0.5, Y: 2.5}},
			{Name: "otto", Position: resource.Point{X: 0.5, Y: 0.5}},
		},
		Cameras: []resource.CameraDef{
			{ID: "cam", Position: resource.Point{X: 6.5, Y: 1.5}, Radius: 1},
		},
	}
}

// recorder collects published alerts.
type recorder struct {
	alerts []Alert
}

func (r *recorder) PublishAlert(a Alert) { r.alerts = append(r.alerts, a) }

func newTestLevel(t *testing.T, def *resource.LevelDef) (*Level, *recorder) {
	t.Helper()
	rec := &recorder{}
	l, err := NewLevel(def, testConfig(), rec, nop())
	require.NoError(t, err)
	return l, rec
}
