package camera

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphif/stagecore/internal/geom"
)

func TestTransformInverse(t *testing.T) {
	points := []geom.Vector{geom.V(0, 0), geom.V(12.5, -7), geom.V(-1e4, 3e3), geom.V(0.001, 999)}
	cams := []struct {
		loc   geom.Vector
		scale float64
	}{
		{geom.V(0, 0), 1},
		{geom.V(250, -40), 0.35},
		{geom.V(-9000, 12), 7.5},
		{geom.V(1, 1), MinScale},
	}
	for i, cc := range cams {
		t.Run(fmt.Sprintf("camera-%d", i), func(t *testing.T) {
			c := New(Options{ViewSize: geom.V(1920, 1080)})
			require.True(t, c.MoveTo(cc.loc))
			require.True(t, c.SetScale(cc.scale))
			for _, p := range points {
				back := c.ViewToWorld(c.WorldToView(p))
				assert.True(t, back.Equals(p, 1e-6), "got %v want %v", back, p)
				assert.True(t, c.Matrix().TransformPoint(p).Equals(c.WorldToView(p), 1e-6))
			}
		})
	}
}

func TestWorldToViewCentersLocation(t *testing.T) {
	c := New(Options{ViewSize: geom.V(800, 600)})
	c.MoveTo(geom.V(100, 100))
	c.SetScale(2)

	assert.Equal(t, geom.V(400, 300), c.WorldToView(geom.V(100, 100)))
	assert.Equal(t, geom.V(420, 300), c.WorldToView(geom.V(110, 100)))
	assert.Equal(t, geom.Rect(-100, -50, 400, 300), c.ViewRectangle())
}

func TestBombMoveEasesAndSnaps(t *testing.T) {
	c := New(Options{ViewSize: geom.V(100, 100)})
	require.True(t, c.BombMove(geom.V(100, 0), 4))

	c.Tick()
	assert.InDelta(t, 25.0, c.Location.X, 1e-9)
	c.Tick()
	assert.InDelta(t, 43.75, c.Location.X, 1e-9)

	for i := 0; i < 100 && c.IsMoving(); i++ {
		c.Tick()
	}
	assert.False(t, c.IsMoving())
	assert.Equal(t, geom.V(100, 0), c.Location)
}

func TestBombMoveLastWriteWins(t *testing.T) {
	c := New(Options{})
	c.BombMove(geom.V(100, 0), 2)
	c.BombMove(geom.V(0, 100), 2)

	c.Tick()
	assert.Equal(t, geom.V(0, 50), c.Location)
}

func TestLockBlocksMovement(t *testing.T) {
	c := New(Options{})
	c.BombMove(geom.V(50, 50), 2)
	c.Lock()

	assert.False(t, c.IsMoving(), "lock cancels in-flight moves")
	assert.False(t, c.MoveTo(geom.V(1, 1)))
	assert.False(t, c.ZoomAt(geom.V(0, 0), 2))
	assert.False(t, c.Tick())
	assert.Equal(t, geom.Zero(), c.Location)

	c.Unlock()
	assert.True(t, c.MoveTo(geom.V(1, 1)))
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	c := New(Options{ViewSize: geom.V(800, 600)})
	c.MoveTo(geom.V(30, 40))
	cursor := geom.V(100, 500)
	anchor := c.ViewToWorld(cursor)

	require.True(t, c.ZoomAt(cursor, 3))
	assert.Equal(t, 3.0, c.CurrentScale)
	assert.True(t, c.ViewToWorld(cursor).Equals(anchor, 1e-9))

	c.ZoomAt(cursor, 1e9)
	assert.Equal(t, MaxScale, c.CurrentScale)
}

func TestBoundsWrapAndClamp(t *testing.T) {
	world := geom.Rect(0, 0, 1000, 500)

	w := New(Options{Mode: BoundsWrap, World: world})
	w.MoveTo(geom.V(1250, -100))
	assert.Equal(t, geom.V(250, 400), w.Location)

	c := New(Options{Mode: BoundsClamp, World: world})
	c.MoveTo(geom.V(1250, -100))
	assert.Equal(t, geom.V(1000, 0), c.Location)
}

func TestBombMoveFinishesInBoundedWorld(t *testing.T) {
	world := geom.Rect(0, 0, 1000, 1000)

	t.Run("clamp", func(t *testing.T) {
		c := New(Options{Mode: BoundsClamp, World: world})
		c.MoveTo(geom.V(500, 500))
		require.True(t, c.BombMove(geom.V(5000, 500), 8))
		for i := 0; i < 1000 && c.IsMoving(); i++ {
			c.Tick()
		}
		assert.False(t, c.IsMoving())
		assert.Equal(t, geom.V(1000, 500), c.Location)
		assert.False(t, c.Tick())
	})

	t.Run("wrap", func(t *testing.T) {
		c := New(Options{Mode: BoundsWrap, World: world})
		c.MoveTo(geom.V(100, 500))
		require.True(t, c.BombMove(geom.V(1500, 500), 8))
		for i := 0; i < 1000 && c.IsMoving(); i++ {
			c.Tick()
		}
		assert.False(t, c.IsMoving())
		assert.Equal(t, geom.V(500, 500), c.Location)
		assert.False(t, c.Tick())
	})

	t.Run("wrap takes the short way", func(t *testing.T) {
		c := New(Options{Mode: BoundsWrap, World: world})
		c.MoveTo(geom.V(950, 500))
		require.True(t, c.BombMove(geom.V(50, 500), 4))
		c.Tick()
		// 100 units across the seam, a quarter of it per tick.
		assert.InDelta(t, 975, c.Location.X, 1e-9)
	})
}

func TestSmoothScale(t *testing.T) {
	c := New(Options{})
	c.SetTargetScale(2)
	for i := 0; i < 200 && c.CurrentScale != c.TargetScale; i++ {
		c.Tick()
	}
	assert.Equal(t, 2.0, c.CurrentScale)
}
