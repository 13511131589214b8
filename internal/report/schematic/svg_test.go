package schematic

import (
	"errors"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

const windowSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="1000" height="1200" viewBox="0 0 1000 1200">
  <rect id="Frame" x="0" y="0" width="1000" height="1200" fill="none" stroke="#000" stroke-width="4"/>
  <g transform="translate(70,70)" style="stroke: red; fill: none">
    <rect id="Sash" x="0" y="0" width="860" height="1060"/>
    <line x1="0" y1="530" x2="860" y2="530"/>
  </g>
  <text x="500" y="1190" text-anchor="middle" font-size="24">1000 mm</text>
</svg>`

func TestParseSVG(t *testing.T) {
	d, err := ParseSVG(strings.NewReader(windowSVG))
	require.NoError(t, err)

	assert.Equal(t, 1000.0, d.Width)
	assert.Equal(t, 1200.0, d.Height)
	require.NotNil(t, d.ViewBox)
	assert.Equal(t, Box{Width: 1000, Height: 1200}, *d.ViewBox)
	require.Len(t, d.Shapes, 3)

	frame := d.Shapes[0]
	assert.Equal(t, "Frame", frame.ID)
	assert.Nil(t, frame.Paint.Fill)
	require.NotNil(t, frame.Paint.Stroke)
	assert.Equal(t, color.RGBA{A: 0xff}, *frame.Paint.Stroke)
	assert.Equal(t, 4.0, frame.Paint.StrokeWidth)

	sash := d.Shapes[1]
	assert.Nil(t, sash.Paint.Fill)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, *sash.Paint.Stroke)
	want := []Segment{
		{Op: OpMove, Pts: [3]vec.Vec2{{X: 70, Y: 70}}},
		{Op: OpLine, Pts: [3]vec.Vec2{{X: 930, Y: 70}}},
		{Op: OpLine, Pts: [3]vec.Vec2{{X: 930, Y: 1130}}},
		{Op: OpLine, Pts: [3]vec.Vec2{{X: 70, Y: 1130}}},
		{Op: OpClose},
	}
	if diff := cmp.Diff(want, sash.Segments); diff != "" {
		t.Errorf("sash segments (-want +got):\n%s", diff)
	}

	require.Len(t, d.Texts, 1)
	assert.Equal(t, "1000 mm", d.Texts[0].Content)
	assert.Equal(t, "middle", d.Texts[0].Anchor)
	assert.Equal(t, 24.0, d.Texts[0].Size)
	assert.Equal(t, vec.Vec2{X: 500, Y: 1190}, d.Texts[0].At)
}

func TestParseSVGSizeFallbacks(t *testing.T) {
	cases := []struct {
		name string
		svg  string
		w, h float64
	}{
		{"units", `<svg width="100mm" height="2in"/>`, 100 * 72 / 25.4, 144},
		{"viewBox only", `<svg viewBox="0 0 400 200"/>`, 400, 200},
		{"width and viewBox", `<svg width="800" viewBox="0 0 400 200"/>`, 800, 400},
		{"content bounds", `<svg><rect x="10" y="20" width="30" height="40"/></svg>`, 30, 40},
		{"percent size", `<svg width="100%" height="100%" viewBox="0 0 50 60"/>`, 50, 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := ParseSVG(strings.NewReader(tc.svg))
			require.NoError(t, err)
			assert.InDelta(t, tc.w, d.Width, 1e-9)
			assert.InDelta(t, tc.h, d.Height, 1e-9)
		})
	}
}

func TestParseSVGErrors(t *testing.T) {
	_, err := ParseSVG(strings.NewReader(`<svg width="10" height="10"><rect`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XML syntax error")

	_, err = ParseSVG(strings.NewReader(`<html></html>`))
	assert.True(t, errors.Is(err, ErrNotSVG))

	_, err = ParseSVG(strings.NewReader(``))
	assert.True(t, errors.Is(err, ErrNotSVG))

	_, err = ParseSVG(strings.NewReader(`<svg></svg>`))
	assert.True(t, errors.Is(err, ErrNoSize))

	_, err = ParseSVG(strings.NewReader(`<svg width="10" height="10"><path id="p1" d="L 10 10"/></svg>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `id="p1"`)

	_, err = ParseSVG(strings.NewReader(`<svg width="10" height="10"><g transform="skewX(30)"/></svg>`))
	assert.Error(t, err)
}

func TestParseSVGShapes(t *testing.T) {
	d, err := ParseSVG(strings.NewReader(`<svg width="100" height="100">
		<circle cx="50" cy="50" r="10"/>
		<ellipse cx="50" cy="50" rx="0" ry="5"/>
		<polygon points="0,0 10,0 10,10"/>
		<polyline points="0 0 5 5 10 0" stroke="rgb(0, 128, 100%)"/>
		<rect width="0" height="10"/>
	</svg>`))
	require.NoError(t, err)
	require.Len(t, d.Shapes, 3)

	circle := d.Shapes[0]
	require.Len(t, circle.Segments, 6)
	assert.Equal(t, vec.Vec2{X: 60, Y: 50}, circle.Segments[0].Pts[0])
	assert.Equal(t, vec.Vec2{X: 50, Y: 60}, circle.Segments[1].Pts[2])

	assert.Equal(t, OpClose, d.Shapes[1].Segments[3].Op)
	assert.Len(t, d.Shapes[2].Segments, 3)
	assert.Equal(t, color.RGBA{G: 128, B: 255, A: 255}, *d.Shapes[2].Paint.Stroke)
}

func TestParseTransform(t *testing.T) {
	m, err := ParseTransform("translate(10, 20) scale(2)")
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: 12, Y: 26}, Apply(m, vec.Vec2{X: 1, Y: 3}))

	m, err = ParseTransform("rotate(90, 10, 10)")
	require.NoError(t, err)
	p := Apply(m, vec.Vec2{X: 20, Y: 10})
	assert.InDelta(t, 10, p.X, 1e-9)
	assert.InDelta(t, 20, p.Y, 1e-9)

	m, err = ParseTransform("matrix(1 0 0 1 5 6)")
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: 5, Y: 6}, Apply(m, vec.Vec2{}))

	_, err = ParseTransform("translate(1,2")
	assert.Error(t, err)
}

func TestNestedGroupTransforms(t *testing.T) {
	d, err := ParseSVG(strings.NewReader(`<svg width="100" height="100">
		<g transform="translate(10,0)"><g transform="scale(2)">
			<line x1="1" y1="1" x2="2" y2="2" stroke-width="3"/>
		</g></g></svg>`))
	require.NoError(t, err)
	require.Len(t, d.Shapes, 1)

	segs := d.Shapes[0].Segments
	assert.Equal(t, vec.Vec2{X: 12, Y: 2}, segs[0].Pts[0])
	assert.Equal(t, vec.Vec2{X: 14, Y: 4}, segs[1].Pts[0])
	assert.InDelta(t, 6, d.Shapes[0].Paint.StrokeWidth, 1e-9)
}

func TestScaleToFit(t *testing.T) {
	assert.Equal(t, 0.25, ScaleToFit(2000, 1000, 500, 300))
	assert.Equal(t, 0.3, ScaleToFit(1000, 1000, 500, 300))
	assert.Equal(t, 2.5, ScaleToFit(200, 100, 500, 300))
}

func TestPlacementIsUniform(t *testing.T) {
	d, err := ParseSVG(strings.NewReader(windowSVG))
	require.NoError(t, err)

	s := ScaleToFit(d.Width, d.Height, 500, 300)
	m := d.Placement(40, 300, s)

	assert.InDelta(t, s, m[0], 1e-12)
	assert.InDelta(t, s, m[3], 1e-12)
	assert.Zero(t, m[1])
	assert.Zero(t, m[2])

	corner := Apply(m, vec.Vec2{X: 1000, Y: 1200})
	assert.InDelta(t, 40+1000*s, corner.X, 1e-9)
	assert.InDelta(t, 300.0+300.0, corner.Y, 1e-9)
}

func TestPlacementCentersViewBox(t *testing.T) {
	d := &Drawing{Width: 200, Height: 100, ViewBox: &Box{MinX: 10, MinY: 10, Width: 100, Height: 100}}
	m := d.Placement(0, 0, 1)

	p := Apply(m, vec.Vec2{X: 10, Y: 10})
	assert.InDelta(t, 50, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
}

func TestBounds(t *testing.T) {
	_, ok := (&Drawing{}).Bounds()
	assert.False(t, ok)

	d := &Drawing{Texts: []Text{{At: vec.Vec2{X: 3, Y: 4}}, {At: vec.Vec2{X: -1, Y: 9}}}}
	box, ok := d.Bounds()
	require.True(t, ok)
	if diff := cmp.Diff(Box{MinX: -1, MinY: 4, Width: 4, Height: 5}, box, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("bounds (-want +got):\n%s", diff)
	}
	assert.False(t, math.IsInf(box.Width, 0))
}
