package schematic

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

var (
	ErrNotSVG = errors.New("root element is not <svg>")
	ErrNoSize = errors.New("drawing has no intrinsic size")
)

// kappa задает контрольные точки кубической кривой для четверти окружности
const kappa = 0.5522847498

var black = color.RGBA{A: 0xff}

// ============================================================
// Parser
// ============================================================

type state struct {
	ctm   matrix.Matrix
	paint Paint
	font  float64
}

// ParseSVG читает SVG документ в Drawing.
func ParseSVG(r io.Reader) (*Drawing, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		d      *Drawing
		stack  []state
		text   *Text
		depth  int
		closed bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if d == nil {
				if t.Name.Local != "svg" {
					return nil, fmt.Errorf("%w: got <%s>", ErrNotSVG, t.Name.Local)
				}
				d = &Drawing{}
				root := state{
					ctm:   matrix.Identity,
					paint: Paint{Fill: &black, StrokeWidth: 1},
					font:  16,
				}
				if err := d.readRoot(t.Attr); err != nil {
					return nil, err
				}
				stack = append(stack, root.inherit(t.Attr))
				continue
			}
			if closed {
				return nil, fmt.Errorf("unexpected <%s> after </svg>", t.Name.Local)
			}

			st, err := stack[len(stack)-1].child(t.Attr)
			if err != nil {
				return nil, fmt.Errorf("<%s>: %w", t.Name.Local, err)
			}
			stack = append(stack, st)

			if t.Name.Local == "text" {
				text = newText(t.Attr, st)
				continue
			}
			shape, err := buildShape(t.Name.Local, t.Attr, st)
			if err != nil {
				return nil, fmt.Errorf("<%s id=%q>: %w", t.Name.Local, attr(t.Attr, "id"), err)
			}
			if shape != nil {
				d.Shapes = append(d.Shapes, *shape)
			}

		case xml.EndElement:
			depth--
			if t.Name.Local == "text" && text != nil {
				text.Content = strings.Join(strings.Fields(text.Content), " ")
				if text.Content != "" {
					d.Texts = append(d.Texts, *text)
				}
				text = nil
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if depth == 0 {
				closed = true
			}

		case xml.CharData:
			if text != nil {
				text.Content += string(t)
			}
		}
	}

	if d == nil {
		return nil, fmt.Errorf("%w: empty document", ErrNotSVG)
	}
	if err := d.resolveSize(); err != nil {
		return nil, err
	}
	return d, nil
}

// readRoot берет width, height и viewBox из элемента <svg>.
func (d *Drawing) readRoot(attrs []xml.Attr) error {
	d.Width, _ = parseLength(attr(attrs, "width"))
	d.Height, _ = parseLength(attr(attrs, "height"))

	if vb := strings.TrimSpace(attr(attrs, "viewBox")); vb != "" {
		v := parseCoords(vb)
		if len(v) != 4 {
			return fmt.Errorf("invalid viewBox %q", vb)
		}
		if v[2] > 0 && v[3] > 0 {
			d.ViewBox = &Box{MinX: v[0], MinY: v[1], Width: v[2], Height: v[3]}
		}
	}
	return nil
}

// resolveSize берет явный размер, затем viewBox и в последнюю очередь
// рамку содержимого.
func (d *Drawing) resolveSize() error {
	if vb := d.ViewBox; vb != nil {
		switch {
		case d.Width <= 0 && d.Height <= 0:
			d.Width, d.Height = vb.Width, vb.Height
		case d.Width <= 0:
			d.Width = d.Height * vb.Width / vb.Height
		case d.Height <= 0:
			d.Height = d.Width * vb.Height / vb.Width
		}
	}

	if d.Width <= 0 || d.Height <= 0 {
		box, ok := d.Bounds()
		if !ok || box.Width <= 0 || box.Height <= 0 {
			return ErrNoSize
		}
		d.ViewBox = &box
		d.Width, d.Height = box.Width, box.Height
	}
	return nil
}

// ============================================================
// Elements
// ============================================================

func buildShape(name string, attrs []xml.Attr, st state) (*Shape, error) {
	var segs []Segment

	switch name {
	case "rect":
		x, y := num(attrs, "x"), num(attrs, "y")
		w, h := num(attrs, "width"), num(attrs, "height")
		if w <= 0 || h <= 0 {
			return nil, nil
		}
		segs = polygon([]vec.Vec2{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}, true)

	case "line":
		segs = polygon([]vec.Vec2{
			{X: num(attrs, "x1"), Y: num(attrs, "y1")},
			{X: num(attrs, "x2"), Y: num(attrs, "y2")},
		}, false)

	case "polyline", "polygon":
		coords := parseCoords(attr(attrs, "points"))
		if len(coords)%2 != 0 {
			return nil, fmt.Errorf("odd number of coordinates in points")
		}
		var pts []vec.Vec2
		for i := 0; i+1 < len(coords); i += 2 {
			pts = append(pts, vec.Vec2{X: coords[i], Y: coords[i+1]})
		}
		if len(pts) < 2 {
			return nil, nil
		}
		segs = polygon(pts, name == "polygon")

	case "circle":
		r := num(attrs, "r")
		if r <= 0 {
			return nil, nil
		}
		segs = ellipse(num(attrs, "cx"), num(attrs, "cy"), r, r)

	case "ellipse":
		rx, ry := num(attrs, "rx"), num(attrs, "ry")
		if rx <= 0 || ry <= 0 {
			return nil, nil
		}
		segs = ellipse(num(attrs, "cx"), num(attrs, "cy"), rx, ry)

	case "path":
		d := attr(attrs, "d")
		if strings.TrimSpace(d) == "" {
			return nil, nil
		}
		var err error
		segs, err = ParsePath(d)
		if err != nil {
			return nil, err
		}

	default:
		// контейнеры (g, svg, a) и неподдерживаемые элементы геометрии не несут
		return nil, nil
	}

	for i := range segs {
		for j := range segs[i].Pts {
			segs[i].Pts[j] = Apply(st.ctm, segs[i].Pts[j])
		}
	}
	paint := st.paint
	paint.StrokeWidth *= LinearScale(st.ctm)

	return &Shape{ID: attr(attrs, "id"), Segments: segs, Paint: paint}, nil
}

func newText(attrs []xml.Attr, st state) *Text {
	fill := black
	if st.paint.Fill != nil {
		fill = *st.paint.Fill
	}
	anchor := attr(attrs, "text-anchor")
	if anchor == "" {
		anchor = styleValue(attrs, "text-anchor")
	}
	if anchor != "middle" && anchor != "end" {
		anchor = "start"
	}
	return &Text{
		At:     Apply(st.ctm, vec.Vec2{X: num(attrs, "x"), Y: num(attrs, "y")}),
		Size:   st.font * LinearScale(st.ctm),
		Anchor: anchor,
		Fill:   fill,
	}
}

func polygon(pts []vec.Vec2, closePath bool) []Segment {
	segs := []Segment{{Op: OpMove, Pts: [3]vec.Vec2{pts[0]}}}
	for _, p := range pts[1:] {
		segs = append(segs, Segment{Op: OpLine, Pts: [3]vec.Vec2{p}})
	}
	if closePath {
		segs = append(segs, Segment{Op: OpClose})
	}
	return segs
}

func ellipse(cx, cy, rx, ry float64) []Segment {
	kx, ky := rx*kappa, ry*kappa
	p := func(x, y float64) vec.Vec2 { return vec.Vec2{X: cx + x, Y: cy + y} }
	return []Segment{
		{Op: OpMove, Pts: [3]vec.Vec2{p(rx, 0)}},
		{Op: OpCubic, Pts: [3]vec.Vec2{p(rx, ky), p(kx, ry), p(0, ry)}},
		{Op: OpCubic, Pts: [3]vec.Vec2{p(-kx, ry), p(-rx, ky), p(-rx, 0)}},
		{Op: OpCubic, Pts: [3]vec.Vec2{p(-rx, -ky), p(-kx, -ry), p(0, -ry)}},
		{Op: OpCubic, Pts: [3]vec.Vec2{p(kx, -ry), p(rx, -ky), p(rx, 0)}},
		{Op: OpClose},
	}
}

// ============================================================
// Inherited state
// ============================================================

// child вычисляет состояние вложенного элемента.
func (s state) child(attrs []xml.Attr) (state, error) {
	if tf := attr(attrs, "transform"); tf != "" {
		local, err := ParseTransform(tf)
		if err != nil {
			return s, err
		}
		s.ctm = local.Mul(s.ctm)
	}
	return s.inherit(attrs), nil
}

// inherit применяет атрибуты оформления и inline style.
func (s state) inherit(attrs []xml.Attr) state {
	lookup := func(key string) string {
		if v := styleValue(attrs, key); v != "" {
			return v
		}
		return attr(attrs, key)
	}

	if v := lookup("fill"); v != "" {
		if c, ok := ParseColor(v); ok {
			s.paint.Fill = c
		}
	}
	if v := lookup("stroke"); v != "" {
		if c, ok := ParseColor(v); ok {
			s.paint.Stroke = c
		}
	}
	if v := lookup("stroke-width"); v != "" {
		if w, ok := parseLength(v); ok && w >= 0 {
			s.paint.StrokeWidth = w
		}
	}
	if v := lookup("font-size"); v != "" {
		if f, ok := parseLength(v); ok && f > 0 {
			s.font = f
		}
	}
	return s
}

// ParseTransform парсит список transform. Как и в SVG, первым применяется
// самое правое преобразование.
func ParseTransform(s string) (matrix.Matrix, error) {
	m := matrix.Identity
	rest := strings.TrimSpace(s)

	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			return m, fmt.Errorf("invalid transform %q", s)
		}
		name := strings.TrimSpace(strings.Trim(rest[:open], ", \t\n"))
		args := parseCoords(rest[open+1 : end])
		rest = strings.TrimSpace(strings.TrimLeft(rest[end+1:], ", \t\n"))

		var t matrix.Matrix
		switch {
		case name == "matrix" && len(args) == 6:
			t = matrix.Matrix{args[0], args[1], args[2], args[3], args[4], args[5]}
		case name == "translate" && len(args) == 1:
			t = matrix.Translate(args[0], 0)
		case name == "translate" && len(args) == 2:
			t = matrix.Translate(args[0], args[1])
		case name == "scale" && len(args) == 1:
			t = matrix.Scale(args[0], args[0])
		case name == "scale" && len(args) == 2:
			t = matrix.Scale(args[0], args[1])
		case name == "rotate" && len(args) == 1:
			t = matrix.RotateDeg(args[0])
		case name == "rotate" && len(args) == 3:
			t = matrix.Translate(-args[1], -args[2]).
				Mul(matrix.RotateDeg(args[0])).
				Mul(matrix.Translate(args[1], args[2]))
		default:
			return m, fmt.Errorf("unsupported transform %s with %d arguments", name, len(args))
		}
		m = t.Mul(m)
	}
	return m, nil
}

// ============================================================
// Attribute helpers
// ============================================================

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func styleValue(attrs []xml.Attr, key string) string {
	for _, decl := range strings.Split(attr(attrs, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func num(attrs []xml.Attr, name string) float64 {
	v, _ := parseLength(attr(attrs, name))
	return v
}

// units переводит суффиксы длины в единицы чертежа (1px = 1pt).
var units = map[string]float64{
	"":   1,
	"px": 1,
	"pt": 1,
	"mm": 72 / 25.4,
	"cm": 72 / 2.54,
	"in": 72,
	"pc": 12,
}

func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	i := len(s)
	for i > 0 && (s[i-1] >= 'a' && s[i-1] <= 'z') {
		i--
	}
	factor, ok := units[s[i:]]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v * factor, true
}
