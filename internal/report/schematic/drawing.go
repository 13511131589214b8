package schematic

import (
	"image/color"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// ============================================================
// Drawing Model
// ============================================================

type SegmentOp int

const (
	OpMove SegmentOp = iota
	OpLine
	OpCubic
	OpClose
)

// Segment - одна команда пути в пользовательских координатах. Для OpCubic
// в Pts две контрольные точки и конечная, OpMove и OpLine используют Pts[0].
type Segment struct {
	Op  SegmentOp
	Pts [3]vec.Vec2
}

type Paint struct {
	Fill        *color.RGBA
	Stroke      *color.RGBA
	StrokeWidth float64
}

type Shape struct {
	ID       string
	Segments []Segment
	Paint    Paint
}

type Text struct {
	At      vec.Vec2
	Content string
	Size    float64
	Anchor  string // start, middle или end
	Fill    color.RGBA
}

type Box struct {
	MinX, MinY    float64
	Width, Height float64
}

// Drawing - разобранная схема. Фигуры и тексты уже в системе координат
// viewBox (или корня, если viewBox нет).
type Drawing struct {
	Width   float64
	Height  float64
	ViewBox *Box
	Shapes  []Shape
	Texts   []Text
}

// ScaleToFit возвращает единый масштаб, с которым чертеж w×h помещается
// в рамку boxW×boxH.
func ScaleToFit(w, h, boxW, boxH float64) float64 {
	return math.Min(boxW/w, boxH/h)
}

// Placement переводит пользовательские координаты в область с левым
// верхним углом (x, y), масштабируя собственный размер на scale по обеим осям.
func (d *Drawing) Placement(x, y, scale float64) matrix.Matrix {
	m := matrix.Identity
	if vb := d.ViewBox; vb != nil && vb.Width > 0 && vb.Height > 0 {
		// preserveAspectRatio="xMidYMid meet"
		s := math.Min(d.Width/vb.Width, d.Height/vb.Height)
		dx := (d.Width - vb.Width*s) / 2
		dy := (d.Height - vb.Height*s) / 2
		m = matrix.Translate(-vb.MinX, -vb.MinY).Mul(matrix.Scale(s, s)).Mul(matrix.Translate(dx, dy))
	}
	return m.Mul(matrix.Scale(scale, scale)).Mul(matrix.Translate(x, y))
}

// Bounds возвращает рамку, охватывающую все точки фигур и привязки текстов.
// Для пустого чертежа ok равен false.
func (d *Drawing) Bounds() (box Box, ok bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	add := func(p vec.Vec2) {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	for _, shape := range d.Shapes {
		for _, seg := range shape.Segments {
			switch seg.Op {
			case OpMove, OpLine:
				add(seg.Pts[0])
			case OpCubic:
				add(seg.Pts[0])
				add(seg.Pts[1])
				add(seg.Pts[2])
			}
		}
	}
	for _, text := range d.Texts {
		add(text.At)
	}

	if math.IsInf(minX, 1) {
		return Box{}, false
	}
	return Box{MinX: minX, MinY: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Apply применяет m к точке p.
func Apply(m matrix.Matrix, p vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// LinearScale - средний коэффициент, с которым m масштабирует длины.
func LinearScale(m matrix.Matrix) float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}
