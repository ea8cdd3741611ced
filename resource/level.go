package resource

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kasuganosora/stealthguard/game/geom"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLevel is returned for level files that cannot describe a playable level.
var ErrInvalidLevel = errors.New("resource: invalid level")

// ---- Level file structures ----

// Point is a continuous-space position in world units.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

func (p Point) Vec() geom.Vec2 { return geom.V(p.X, p.Y) }

// Box is an axis-aligned rectangle given by its centre and half extent.
type Box struct {
	Center Point `yaml:"center" json:"center"`
	Half   Point `yaml:"half" json:"half"`
}

func (b Box) Rect() geom.Rect { return geom.Rect{Center: b.Center.Vec(), Half: b.Half.Vec()} }

// Bounds is the world rectangle given by its lower-left origin and size.
type Bounds struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

func (b Bounds) Rect() geom.Rect { return geom.RectFromOrigin(b.X, b.Y, b.Width, b.Height) }

type GuardDef struct {
	ID       string  `yaml:"id" json:"id"`
	Position Point   `yaml:"position" json:"position"`
	Facing   float64 `yaml:"facing" json:"facing"` // degrees, 0 = +X
	Force    float64 `yaml:"force" json:"force"` // units per second on a kinematic body
	Patrol   []Point `yaml:"patrol" json:"patrol"`
}

// PatrolPoints returns the patrol waypoints as vectors.
func (g GuardDef) PatrolPoints() []geom.Vec2 {
	pts := make([]geom.Vec2, len(g.Patrol))
	for i, p := range g.Patrol {
		pts[i] = p.Vec()
	}
	return pts
}

// TargetDef is a detectable actor. The first target starts as the active avatar.
type TargetDef struct {
	Name     string `yaml:"name" json:"name"`
	Position Point  `yaml:"position" json:"position"`
}

// CameraDef is a security light: a circular sensor volume.
type CameraDef struct {
	ID       string  `yaml:"id" json:"id"`
	Position Point   `yaml:"position" json:"position"`
	Radius   float64 `yaml:"radius" json:"radius"`
}

// LevelDef is a complete level description.
type LevelDef struct {
	Name         string      `yaml:"name" json:"name"`
	Bounds       Bounds      `yaml:"bounds" json:"bounds"`
	Scale        Point       `yaml:"scale" json:"scale"`
	CellsPerUnit float64     `yaml:"cells_per_unit" json:"cells_per_unit"`
	Walls        []Box       `yaml:"walls" json:"walls"`
	Guards       []GuardDef  `yaml:"guards" json:"guards"`
	Targets      []TargetDef `yaml:"targets" json:"targets"`
	Cameras      []CameraDef `yaml:"cameras" json:"cameras"`
}

// WallRects returns the static obstacles as rectangles.
func (d *LevelDef) WallRects() []geom.Rect {
	out := make([]geom.Rect, len(d.Walls))
	for i, w := range d.Walls {
		out[i] = w.Rect()
	}
	return out
}

// ParseLevel decodes a level from YAML (or JSON, which YAML accepts),
// fills defaults and validates it.
func ParseLevel(data []byte) (*LevelDef, error) {
	var def LevelDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	def.applyDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *LevelDef) applyDefaults() {
	if d.Scale.X == 0 && d.Scale.Y == 0 {
		d.Scale = Point{X: 1, Y: 1}
	}
	if d.CellsPerUnit == 0 {
		d.CellsPerUnit = 1
	}
	for i := range d.Guards {
		g := &d.Guards[i]
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		if g.Force == 0 {
			g.Force = 1
		}
	}
	for i := range d.Cameras {
		if d.Cameras[i].ID == "" {
			d.Cameras[i].ID = fmt.Sprintf("camera-%d", i)
		}
	}
}

// Validate checks the structural rules of a level. Grid-level problems
// (degenerate tile counts) are left to grid.Build.
func (d *LevelDef) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidLevel)
	}
	if d.Bounds.Width <= 0 || d.Bounds.Height <= 0 {
		return fmt.Errorf("%w: %s: bounds %vx%v", ErrInvalidLevel, d.Name, d.Bounds.Width, d.Bounds.Height)
	}
	if d.CellsPerUnit < 0 {
		return fmt.Errorf("%w: %s: cells_per_unit %v", ErrInvalidLevel, d.Name, d.CellsPerUnit)
	}
	if d.Scale.X <= 0 || d.Scale.Y <= 0 {
		return fmt.Errorf("%w: %s: scale %v,%v", ErrInvalidLevel, d.Name, d.Scale.X, d.Scale.Y)
	}
	for i, w := range d.Walls {
		if w.Half.X < 0 || w.Half.Y < 0 {
			return fmt.Errorf("%w: %s: wall %d has negative extent", ErrInvalidLevel, d.Name, i)
		}
	}
	bounds := d.Bounds.Rect()
	seen := make(map[string]bool, len(d.Guards))
	for _, g := range d.Guards {
		if seen[g.ID] {
			return fmt.Errorf("%w: %s: duplicate guard id %q", ErrInvalidLevel, d.Name, g.ID)
		}
		seen[g.ID] = true
		if g.Force < 0 {
			return fmt.Errorf("%w: %s: guard %q has negative force", ErrInvalidLevel, d.Name, g.ID)
		}
		if !bounds.Contains(g.Position.Vec()) {
			return fmt.Errorf("%w: %s: guard %q starts outside the bounds", ErrInvalidLevel, d.Name, g.ID)
		}
	}
	for _, c := range d.Cameras {
		if c.Radius <= 0 {
			return fmt.Errorf("%w: %s: camera %q radius %v", ErrInvalidLevel, d.Name, c.ID, c.Radius)
		}
	}
	return nil
}
