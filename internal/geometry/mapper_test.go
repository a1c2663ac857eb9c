package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scandesk/internal/domain"
	"scandesk/internal/geometry"
)

func TestNewMapper_ComputesScale(t *testing.T) {
	m := geometry.NewMapper(geometry.Size{Width: 400, Height: 300}, geometry.Size{Width: 800, Height: 600})

	assert.False(t, m.Degenerate())
	assert.Equal(t, domain.DisplayScale{ScaleX: 0.5, ScaleY: 0.5}, m.Scale())
	assert.Equal(t, domain.Point{X: 40, Y: 30}, m.ToDisplay(domain.Point{X: 80, Y: 60}))
	assert.Equal(t, domain.Point{X: 80, Y: 60}, m.ToNative(domain.Point{X: 40, Y: 30}))
}

func TestNewMapper_NonUniformScale(t *testing.T) {
	m := geometry.NewMapper(geometry.Size{Width: 500, Height: 1000}, geometry.Size{Width: 1000, Height: 500})

	assert.Equal(t, domain.DisplayScale{ScaleX: 0.5, ScaleY: 2}, m.Scale())
	assert.Equal(t, domain.Point{X: 50, Y: 200}, m.ToDisplay(domain.Point{X: 100, Y: 100}))
}

func TestNewMapper_DegenerateIsIdentity(t *testing.T) {
	cases := []struct {
		name     string
		rendered geometry.Size
		native   geometry.Size
	}{
		{"zero native", geometry.Size{Width: 400, Height: 300}, geometry.Size{}},
		{"zero native height", geometry.Size{Width: 400, Height: 300}, geometry.Size{Width: 800}},
		{"zero rendered", geometry.Size{}, geometry.Size{Width: 800, Height: 600}},
		{"negative", geometry.Size{Width: -1, Height: 300}, geometry.Size{Width: 800, Height: 600}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := geometry.NewMapper(tc.rendered, tc.native)
			p := domain.Point{X: 12.5, Y: 7}

			assert.True(t, m.Degenerate())
			assert.Equal(t, domain.IdentityScale, m.Scale())
			assert.Equal(t, p, m.ToDisplay(p))
			assert.Equal(t, p, m.ToNative(p))
		})
	}
}

func TestMapper_RoundTrip(t *testing.T) {
	native := geometry.Size{Width: 3024, Height: 4032}
	renders := []geometry.Size{
		{Width: 1, Height: 1},
		{Width: 333, Height: 444},
		{Width: 640.5, Height: 377.25},
		{Width: 9000, Height: 12000},
	}
	points := []domain.Point{
		{X: 0, Y: 0},
		{X: native.Width, Y: native.Height},
		{X: 1234.5678, Y: 17.001},
		{X: 3023.999, Y: 0.0001},
	}

	for _, r := range renders {
		m := geometry.NewMapper(r, native)
		for _, p := range points {
			got := m.ToNative(m.ToDisplay(p))
			assert.InDelta(t, p.X, got.X, 1e-9)
			assert.InDelta(t, p.Y, got.Y, 1e-9)
		}
	}
}

func TestMapper_QuadToDisplay(t *testing.T) {
	m := geometry.NewMapper(geometry.Size{Width: 400, Height: 300}, geometry.Size{Width: 800, Height: 600})
	q := domain.Quadrilateral{{X: 80, Y: 60}, {X: 720, Y: 60}, {X: 720, Y: 540}, {X: 80, Y: 540}}

	got := m.QuadToDisplay(q)

	assert.Equal(t, domain.Quadrilateral{{X: 40, Y: 30}, {X: 360, Y: 30}, {X: 360, Y: 270}, {X: 40, Y: 270}}, got)
	// source untouched
	assert.Equal(t, domain.Point{X: 80, Y: 60}, q[0])
}

func TestSyntheticQuad(t *testing.T) {
	got := geometry.SyntheticQuad(geometry.Size{Width: 1000, Height: 2000})

	assert.Equal(t, domain.Quadrilateral{
		{X: 100, Y: 200},
		{X: 900, Y: 200},
		{X: 900, Y: 1800},
		{X: 100, Y: 1800},
	}, got)
}

func TestClamp(t *testing.T) {
	size := geometry.Size{Width: 800, Height: 600}

	assert.Equal(t, domain.Point{X: 0, Y: 0}, geometry.Clamp(domain.Point{X: -50, Y: -1}, size))
	assert.Equal(t, domain.Point{X: 800, Y: 600}, geometry.Clamp(domain.Point{X: 5000, Y: 601}, size))
	assert.Equal(t, domain.Point{X: 10, Y: 600}, geometry.Clamp(domain.Point{X: 10, Y: 1e9}, size))
	assert.Equal(t, domain.Point{X: 400, Y: 300}, geometry.Clamp(domain.Point{X: 400, Y: 300}, size))
}
