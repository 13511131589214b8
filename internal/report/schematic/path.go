package schematic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/vec"
)

// ============================================================
// Path Parser
// ============================================================

var (
	commandRe = regexp.MustCompile(`([MmLlHhVvCcSsQqTtAaZz])([^MmLlHhVvCcSsQqTtAaZz]*)`)
	numberRe  = regexp.MustCompile(`[-+]?(?:\d*\.\d+|\d+\.?)(?:[eE][-+]?\d+)?`)
)

// число аргументов команды без учета неявного повтора
var commandArgs = map[byte]int{
	'M': 2, 'L': 2, 'H': 1, 'V': 1, 'C': 6, 'S': 4, 'Q': 4, 'T': 2, 'A': 7, 'Z': 0,
}

// ParsePath переводит SVG path в абсолютные сегменты.
// Квадратичные кривые повышаются до кубических, эллиптические дуги
// заменяются отрезком до конечной точки.
func ParsePath(d string) ([]Segment, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, fmt.Errorf("empty path")
	}

	matches := commandRe.FindAllStringSubmatch(d, -1)
	if len(matches) == 0 || (matches[0][1] != "M" && matches[0][1] != "m") {
		return nil, fmt.Errorf("path must start with a moveto: %q", truncate(d, 20))
	}

	var (
		segs         []Segment
		cur, start   vec.Vec2
		lastCtrl     vec.Vec2 // отражается командами S/s и T/t
		lastWasCubic bool
		lastWasQuad  bool
		lastQuadCtrl vec.Vec2
	)

	for _, match := range matches {
		cmd := match[1][0]
		upper := cmd &^ 0x20
		relative := cmd != upper
		args := parseCoords(match[2])
		n := commandArgs[upper]

		if n == 0 {
			if len(args) != 0 {
				return nil, fmt.Errorf("path: command %c takes no arguments", cmd)
			}
			segs = append(segs, Segment{Op: OpClose})
			cur = start
			lastWasCubic, lastWasQuad = false, false
			continue
		}
		if len(args) == 0 || len(args)%n != 0 {
			return nil, fmt.Errorf("path: command %c expects a multiple of %d arguments, got %d", cmd, n, len(args))
		}

		for i := 0; i < len(args); i += n {
			a := args[i : i+n]
			pt := func(j int) vec.Vec2 {
				p := vec.Vec2{X: a[j], Y: a[j+1]}
				if relative {
					p = p.Add(cur)
				}
				return p
			}

			isCubic, isQuad := false, false
			switch upper {
			case 'M':
				cur = pt(0)
				if i == 0 {
					start = cur
					segs = append(segs, Segment{Op: OpMove, Pts: [3]vec.Vec2{cur}})
				} else {
					// лишние пары после moveto - неявные lineto
					segs = append(segs, Segment{Op: OpLine, Pts: [3]vec.Vec2{cur}})
				}

			case 'L', 'T', 'A':
				var end vec.Vec2
				if upper == 'A' {
					end = pt(5)
				} else {
					end = pt(0)
				}
				if upper == 'T' {
					ctrl := cur
					if lastWasQuad {
						ctrl = cur.Add(cur.Sub(lastQuadCtrl))
					}
					segs = append(segs, quadToCubic(cur, ctrl, end))
					lastQuadCtrl = ctrl
					isQuad = true
				} else {
					segs = append(segs, Segment{Op: OpLine, Pts: [3]vec.Vec2{end}})
				}
				cur = end

			case 'H':
				x := a[0]
				if relative {
					x += cur.X
				}
				cur = vec.Vec2{X: x, Y: cur.Y}
				segs = append(segs, Segment{Op: OpLine, Pts: [3]vec.Vec2{cur}})

			case 'V':
				y := a[0]
				if relative {
					y += cur.Y
				}
				cur = vec.Vec2{X: cur.X, Y: y}
				segs = append(segs, Segment{Op: OpLine, Pts: [3]vec.Vec2{cur}})

			case 'C':
				c1, c2, end := pt(0), pt(2), pt(4)
				segs = append(segs, Segment{Op: OpCubic, Pts: [3]vec.Vec2{c1, c2, end}})
				lastCtrl, cur = c2, end
				isCubic = true

			case 'S':
				c1 := cur
				if lastWasCubic {
					c1 = cur.Add(cur.Sub(lastCtrl))
				}
				c2, end := pt(0), pt(2)
				segs = append(segs, Segment{Op: OpCubic, Pts: [3]vec.Vec2{c1, c2, end}})
				lastCtrl, cur = c2, end
				isCubic = true

			case 'Q':
				ctrl, end := pt(0), pt(2)
				segs = append(segs, quadToCubic(cur, ctrl, end))
				lastQuadCtrl, cur = ctrl, end
				isQuad = true
			}
			lastWasCubic, lastWasQuad = isCubic, isQuad
		}
	}

	return segs, nil
}

func quadToCubic(from, ctrl, to vec.Vec2) Segment {
	c1 := from.Add(ctrl.Sub(from).Mul(2.0 / 3.0))
	c2 := to.Add(ctrl.Sub(to).Mul(2.0 / 3.0))
	return Segment{Op: OpCubic, Pts: [3]vec.Vec2{c1, c2, to}}
}

func parseCoords(s string) []float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var coords []float64
	for _, part := range numberRe.FindAllString(s, -1) {
		val, err := strconv.ParseFloat(part, 64)
		if err == nil {
			coords = append(coords, val)
		}
	}
	return coords
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
