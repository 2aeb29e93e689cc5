package engine

import (
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

const (
	// FadeFrames is how long deleted objects take to fade out.
	FadeFrames = 20
	// FlashFrames is how long the focus ring around a target stays visible.
	FlashFrames = 30
)

// effect is a short-lived overlay drawn on top of the scene. Effects are in world space
// and do not belong to the stage.
type effect struct {
	commands []DrawCommand
	frames   int
	elapsed  int
	easing   Easing
}

func (f *effect) opacity() float64 {
	return 1 - applyEasing(float64(f.elapsed)/float64(f.frames), f.easing)
}

func (f *effect) done() bool { return f.elapsed >= f.frames }

// effects is the list of running overlays, advanced once per Tick.
type effects struct {
	running []*effect
}

func (es *effects) add(f *effect) {
	if f.frames <= 0 || len(f.commands) == 0 {
		return
	}
	es.running = append(es.running, f)
}

// tick advances every effect and drops the finished ones. It reports whether any
// overlay is still on screen.
func (es *effects) tick() bool {
	live := es.running[:0]
	for _, f := range es.running {
		f.elapsed++
		if !f.done() {
			live = append(live, f)
		}
	}
	clear(es.running[len(live):])
	es.running = live
	return len(live) > 0
}

func (es *effects) active() bool { return len(es.running) > 0 }

// draw appends the overlays with their current opacity and the given transform.
func (es *effects) draw(out []DrawCommand, transform []float64) []DrawCommand {
	for _, f := range es.running {
		a := f.opacity()
		for _, cmd := range f.commands {
			cmd.Transform = transform
			cmd.Opacity = a
			cmd.ObjectID = ""
			out = append(out, cmd)
		}
	}
	return out
}

// fadeOut freezes the last drawn commands of the removed objects into an effect.
func fadeOut(scene *Scene, removed []stage.Object) *effect {
	ids := make(map[string]bool, len(removed))
	for _, o := range removed {
		ids[o.UUID()] = true
	}
	f := &effect{frames: FadeFrames, easing: EasingEaseOut}
	for _, cmd := range scene.Commands {
		if ids[cmd.ObjectID] {
			cmd.Selected = false
			f.commands = append(f.commands, cmd)
		}
	}
	return f
}

// flash outlines r and fades out.
func flash(r geom.Rectangle) *effect {
	return &effect{
		frames: FlashFrames,
		easing: EasingCubicOut,
		commands: []DrawCommand{{
			Op:          OpRect,
			Bounds:      rectArgs(r.Expand(stage.SectionPadding)),
			Stroke:      SelectionStroke,
			StrokeWidth: nodeStrokeWidth * 2,
		}},
	}
}
