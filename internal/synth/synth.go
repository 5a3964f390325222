// Package synth generates seeded synthetic tracking tables and mitosis
// events for property tests and for exercising the commands without
// microscope data.
package synth

import (
	"strconv"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/tracks"
)

// Generator draws every value from a seeded faker, so equal seeds give equal
// output.
type Generator struct {
	faker *gofakeit.Faker

	// Width and Height bound generated positions.
	Width, Height float64
}

// New returns a generator over a 1024x1024 field.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed), Width: 1024, Height: 1024}
}

// Events returns n events at frames 0, gap, 2*gap, ... with random
// positions. With gap greater than twice a time tolerance no two events can
// compete for the same match.
func (g *Generator) Events(n int, gap float64) []mitosis.Event {
	events := make([]mitosis.Event, n)
	for i := range events {
		events[i] = mitosis.Event{
			ID: strconv.Itoa(i + 1),
			T:  float64(i) * gap,
			X:  g.faker.Float64Range(0, g.Width),
			Y:  g.faker.Float64Range(0, g.Height),
		}
	}
	return events
}

// Jitter returns a copy of events, each moved by a random offset inside tol.
// Frames stay integral.
func (g *Generator) Jitter(events []mitosis.Event, tol mitosis.Tolerance) []mitosis.Event {
	out := make([]mitosis.Event, len(events))
	dt := int(tol.Time)
	for i, e := range events {
		e.T += float64(g.faker.Number(-dt, dt))
		e.X += g.faker.Float64Range(-tol.Position, tol.Position)
		e.Y += g.faker.Float64Range(-tol.Position, tol.Position)
		out[i] = e
	}
	return out
}

// Shuffle returns events in a random order.
func (g *Generator) Shuffle(events []mitosis.Event) []mitosis.Event {
	out := append([]mitosis.Event(nil), events...)
	for i := len(out) - 1; i > 0; i-- {
		j := g.faker.Number(0, i)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// LineageOptions shapes a synthetic ultrack table.
type LineageOptions struct {
	Roots  int
	Frames int
	// DivisionRate is the per-frame probability that a cell divides.
	DivisionRate float64
	// DeathRate is the per-frame probability that a cell disappears.
	DeathRate float64
	// Step bounds the per-axis displacement between frames.
	Step float64
}

// DefaultLineageOptions returns a small, division-rich lineage.
func DefaultLineageOptions() LineageOptions {
	return LineageOptions{Roots: 4, Frames: 24, DivisionRate: 0.08, DeathRate: 0.01, Step: 6}
}

type cell struct {
	id, parent int
	x, y, area float64
}

// Lineage simulates cells wandering, dividing and dying, and returns the
// resulting ultrack-style table (track_id, parent_track_id, t, x, y, area).
// A dividing cell's track ends on its division frame and two daughter
// tracks start on the next one.
func (g *Generator) Lineage(opts LineageOptions) *tracks.Table {
	out := tracks.New("track_id", "parent_track_id", "t", "x", "y", "area")

	nextID := 1
	active := make([]cell, 0, opts.Roots)
	for i := 0; i < opts.Roots; i++ {
		active = append(active, cell{
			id:     nextID,
			parent: -1,
			x:      g.faker.Float64Range(0, g.Width),
			y:      g.faker.Float64Range(0, g.Height),
			area:   g.faker.Float64Range(80, 160),
		})
		nextID++
	}

	for f := 0; f < opts.Frames; f++ {
		var next []cell
		for _, c := range active {
			out.Append(
				strconv.Itoa(c.id),
				strconv.Itoa(c.parent),
				strconv.Itoa(f),
				tracks.FormatFloat(round(c.x)),
				tracks.FormatFloat(round(c.y)),
				tracks.FormatFloat(round(c.area)),
			)
			if f == opts.Frames-1 {
				continue
			}
			roll := g.faker.Float64Range(0, 1)
			switch {
			case roll < opts.DeathRate:
			case roll < opts.DeathRate+opts.DivisionRate:
				for k := 0; k < 2; k++ {
					next = append(next, cell{
						id:     nextID,
						parent: c.id,
						x:      g.clampX(c.x + g.faker.Float64Range(-opts.Step, opts.Step)),
						y:      g.clampY(c.y + g.faker.Float64Range(-opts.Step, opts.Step)),
						area:   c.area / 2,
					})
					nextID++
				}
			default:
				c.x = g.clampX(c.x + g.faker.Float64Range(-opts.Step, opts.Step))
				c.y = g.clampY(c.y + g.faker.Float64Range(-opts.Step, opts.Step))
				c.area *= g.faker.Float64Range(0.98, 1.06)
				next = append(next, c)
			}
		}
		active = next
	}
	return out
}

func (g *Generator) clampX(v float64) float64 { return clamp(v, 0, g.Width) }
func (g *Generator) clampY(v float64) float64 { return clamp(v, 0, g.Height) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round keeps two decimals so generated tables read like tracker output.
func round(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
