// Package renderer верстает одностраничный технический лист изделия.
//
// Ошибки делятся на два уровня. Битый логотип или схема заменяются красной
// строкой диагностики, и страница все равно формируется. Любая другая
// ошибка прерывает вызов, частичный документ не возвращается.
package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"menuiserie-report/internal/common/logging"
	"menuiserie-report/internal/report/models"
	"menuiserie-report/internal/report/schematic"
)

// ErrRenderFailed возвращается, когда документ сформировать не удалось.
var ErrRenderFailed = errors.New("report rendering failed")

// Разметка страницы в пунктах от левого верхнего угла.
const (
	marginLeft = 40.0

	logoTop   = 30.0
	logoWidth = 150.0

	titleY          = 120.0
	projectY        = 142.0
	dateY           = 157.0
	characteristicY = 187.0
	bulletTop       = 207.0
	linePitch       = 15.0

	drawingBoxW  = 500.0
	drawingBoxH  = 300.0
	drawingGap   = 12.0
	drawingAfter = 20.0

	footerFromBottom = 30.0
)

const (
	fontFamily  = "Helvetica"
	placeholder = "No schematic available"
	disclaimer  = "Non-contractual document. Dimensions must be checked on site before manufacturing."
	maxErrRunes = 110
)

// ============================================================
// Renderer
// ============================================================

// Renderer формирует одностраничный технический лист изделия.
// Экземпляр не хранит состояния между вызовами Render.
type Renderer struct {
	logger   *zap.Logger
	now      func() time.Time
	logo     string
	paper    string
	compress bool
	author   string
}

// Option настраивает Renderer при создании.
type Option func(*Renderer)

// WithLogger задает логгер для диагностики; nil заменяется на no-op.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) { r.logger = logging.OrNop(l) }
}

// WithClock задает источник даты для строки "Date" и метаданных документа.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithLogo заменяет встроенный логотип строкой base64.
func WithLogo(base64Logo string) Option {
	return func(r *Renderer) { r.logo = base64Logo }
}

// WithPaper задает формат страницы в терминах fpdf ("A4", "Letter").
func WithPaper(size string) Option {
	return func(r *Renderer) { r.paper = size }
}

// WithCompression включает или отключает сжатие потоков PDF.
func WithCompression(compress bool) Option {
	return func(r *Renderer) { r.compress = compress }
}

// WithAuthor записывает автора в метаданные документа.
func WithAuthor(author string) Option {
	return func(r *Renderer) { r.author = author }
}

// New создает Renderer: формат A4, встроенный логотип, сжатие включено.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		logger:   zap.NewNop(),
		now:      time.Now,
		logo:     DefaultLogo,
		paper:    "A4",
		compress: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome описывает, что произошло с необязательными элементами страницы.
type Outcome struct {
	LogoError      error
	HasSchematic   bool
	SchematicError error
	// Scale - масштаб схемы по обеим осям.
	Scale float64
	// Cursor - вертикальная позиция после блока чертежа.
	Cursor float64
}

// Render формирует технический лист для rec. Пустой svg означает, что схемы
// нет. Возвращаемый reader стоит в начале PDF.
func (r *Renderer) Render(rec models.Record, svg string) (*bytes.Reader, error) {
	doc, _, err := r.RenderDetailed(rec, svg)
	return doc, err
}

// RenderDetailed делает то же, что Render, и дополнительно возвращает Outcome.
func (r *Renderer) RenderDetailed(rec models.Record, svg string) (doc *bytes.Reader, out *Outcome, err error) {
	refID := rec.RefID()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrRenderFailed, p)
		}
		if err != nil {
			doc, out = nil, nil
			r.logger.Error("report generation failed",
				zap.String("ref_id", refID),
				zap.Error(err),
			)
		}
	}()

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		SizeStr:        r.paper,
	})
	pdf.SetCompression(r.compress)
	pdf.SetMargins(marginLeft, logoTop, marginLeft)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("menuiserie report service", true)
	pdf.SetTitle("Technical sheet "+refID, true)
	pdf.SetSubject(rec.ProjectName(), true)
	if r.author != "" {
		pdf.SetAuthor(r.author, true)
	}
	pdf.SetCreationDate(r.now())
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, nil, fmt.Errorf("%w: create page: %v", ErrRenderFailed, err)
	}

	out = &Outcome{}

	out.LogoError = r.guardAsset(pdf, r.drawLogo)
	if out.LogoError != nil {
		r.logger.Warn("logo skipped", zap.String("ref_id", refID), zap.Error(out.LogoError))
		r.errorLine(pdf, logoTop+12, "Logo error: "+out.LogoError.Error())
	}

	r.drawCharacteristics(pdf, rec)

	cursor := bulletTop + 5*linePitch + 15
	pdf.SetFont(fontFamily, "B", 13)
	pdf.SetTextColor(30, 58, 95)
	pdf.Text(marginLeft, cursor, "Technical drawing")
	cursor += drawingGap

	if svg == "" {
		pdf.SetFont(fontFamily, "I", 10)
		pdf.SetTextColor(110, 110, 110)
		pdf.Text(marginLeft, cursor+15, placeholder)
		cursor += 15 + drawingAfter
	} else {
		out.HasSchematic = true
		var height float64
		out.SchematicError = r.guardAsset(pdf, func(pdf *fpdf.Fpdf) error {
			var err error
			out.Scale, height, err = drawSchematic(pdf, svg, marginLeft, cursor)
			return err
		})
		if out.SchematicError != nil {
			r.logger.Warn("schematic skipped", zap.String("ref_id", refID), zap.Error(out.SchematicError))
			r.errorLine(pdf, cursor+15, "Drawing error: "+out.SchematicError.Error())
			height = 15
		}
		cursor += height + drawingAfter
	}
	out.Cursor = cursor

	r.drawFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, nil, fmt.Errorf("%w: write document: %v", ErrRenderFailed, err)
	}
	if buf.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: empty document", ErrRenderFailed)
	}

	r.logger.Debug("report generated",
		zap.String("ref_id", refID),
		zap.Int("bytes", buf.Len()),
		zap.Bool("logo", out.LogoError == nil),
		zap.Bool("schematic", out.HasSchematic && out.SchematicError == nil),
	)
	return bytes.NewReader(buf.Bytes()), out, nil
}

// guardAsset выполняет необязательный шаг отрисовки. Паника и ошибка,
// оставленная шагом в writer, превращаются в возвращаемую ошибку, после
// чего writer снова пригоден к работе.
func (r *Renderer) guardAsset(pdf *fpdf.Fpdf, step func(*fpdf.Fpdf) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
		if pdfErr := pdf.Error(); pdfErr != nil {
			if err == nil {
				err = pdfErr
			}
			pdf.ClearError()
		}
	}()
	return step(pdf)
}

// ============================================================
// Sections
// ============================================================

func (r *Renderer) drawLogo(pdf *fpdf.Fpdf) error {
	raw, err := DecodeLogo(r.logo)
	if err != nil {
		return err
	}
	logo, err := prepareLogo(raw)
	if err != nil {
		return err
	}

	opts := fpdf.ImageOptions{ImageType: logo.kind}
	pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(logo.data))
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("embed logo: %w", err)
	}

	ratio := float64(logo.height) / float64(logo.width)
	pdf.ImageOptions("logo", marginLeft, logoTop, logoWidth, logoWidth*ratio, false, opts, 0, "")
	return nil
}

func (r *Renderer) drawCharacteristics(pdf *fpdf.Fpdf, rec models.Record) {
	pdf.SetFont(fontFamily, "B", 18)
	pdf.SetTextColor(30, 58, 95)
	pdf.Text(marginLeft, titleY, encode("Technical sheet "+rec.RefID()))

	pdf.SetFont(fontFamily, "", 11)
	pdf.SetTextColor(44, 62, 80)
	pdf.Text(marginLeft, projectY, encode("Project: "+rec.ProjectName()))
	pdf.Text(marginLeft, dateY, "Date: "+r.now().Format("02/01/2006"))

	pdf.SetFont(fontFamily, "B", 13)
	pdf.SetTextColor(30, 58, 95)
	pdf.Text(marginLeft, characteristicY, "Main characteristics")

	pdf.SetFont(fontFamily, "", 11)
	pdf.SetTextColor(44, 62, 80)
	for i, line := range characteristicLines(rec) {
		pdf.Text(marginLeft+10, bulletTop+float64(i)*linePitch, encode("• "+line))
	}
}

func characteristicLines(rec models.Record) []string {
	return []string{
		fmt.Sprintf("Dimensions: %s x %s mm", models.FormatNumber(rec.Width()), models.FormatNumber(rec.Height())),
		fmt.Sprintf("Material / installation: %s - %s", rec.Material(), rec.Installation()),
		fmt.Sprintf("Colors (inside / outside): %s / %s", rec.ColorInside(), rec.ColorOutside()),
		fmt.Sprintf("Frame thickness: %s mm", models.FormatNumber(rec.FrameThickness())),
		fmt.Sprintf("Fin: %s mm", models.FormatNumber(rec.FinSize())),
	}
}

func (r *Renderer) drawFooter(pdf *fpdf.Fpdf) {
	pageW, pageH := pdf.GetPageSize()
	pdf.SetFont(fontFamily, "I", 8)
	pdf.SetTextColor(127, 140, 141)
	text := encode(disclaimer)
	pdf.Text((pageW-pdf.GetStringWidth(text))/2, pageH-footerFromBottom, text)
}

func (r *Renderer) errorLine(pdf *fpdf.Fpdf, y float64, msg string) {
	pdf.SetFont(fontFamily, "I", 9)
	pdf.SetTextColor(200, 0, 0)
	pdf.Text(marginLeft, y, encode(oneLine(msg, maxErrRunes)))
}

// ============================================================
// Schematic
// ============================================================

// drawSchematic парсит svg и рисует схему в рамке чертежа с левым верхним
// углом в (x, y). Возвращает масштаб по обеим осям и высоту отрисовки.
// Если хотя бы одна точка не попадает на страницу в конечных координатах,
// ничего не рисуется.
func drawSchematic(pdf *fpdf.Fpdf, svg string, x, y float64) (scale, height float64, err error) {
	d, err := schematic.ParseSVG(strings.NewReader(svg))
	if err != nil {
		return 0, 0, err
	}

	scale = schematic.ScaleToFit(d.Width, d.Height, drawingBoxW, drawingBoxH)
	height = d.Height * scale
	if !finite(scale) || scale <= 0 || !finite(height) {
		return 0, 0, fmt.Errorf("cannot fit a %gx%g drawing on the page", d.Width, d.Height)
	}
	m := d.Placement(x, y, scale)
	lineScale := schematic.LinearScale(m)
	if !finite(lineScale) {
		return 0, 0, errUnplaceable
	}

	shapes := make([][]schematic.Segment, len(d.Shapes))
	for i, shape := range d.Shapes {
		segs := make([]schematic.Segment, len(shape.Segments))
		for j, seg := range shape.Segments {
			for k := range seg.Pts {
				p := schematic.Apply(m, seg.Pts[k])
				if !finite(p.X) || !finite(p.Y) {
					return 0, 0, errUnplaceable
				}
				seg.Pts[k] = p
			}
			segs[j] = seg
		}
		shapes[i] = segs
	}
	texts := make([]schematic.Text, len(d.Texts))
	for i, text := range d.Texts {
		text.At = schematic.Apply(m, text.At)
		text.Size = max(text.Size*lineScale, 4)
		if !finite(text.At.X) || !finite(text.At.Y) || !finite(text.Size) {
			return 0, 0, errUnplaceable
		}
		texts[i] = text
	}

	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	for i, shape := range d.Shapes {
		style := ""
		if c := shape.Paint.Fill; c != nil {
			pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
			style += "F"
		}
		if c := shape.Paint.Stroke; c != nil && shape.Paint.StrokeWidth > 0 {
			pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
			pdf.SetLineWidth(shape.Paint.StrokeWidth * lineScale)
			style += "D"
		}
		if style == "" || len(shapes[i]) == 0 {
			continue
		}

		for _, seg := range shapes[i] {
			p := seg.Pts[0]
			switch seg.Op {
			case schematic.OpMove:
				pdf.MoveTo(p.X, p.Y)
			case schematic.OpLine:
				pdf.LineTo(p.X, p.Y)
			case schematic.OpCubic:
				c2, end := seg.Pts[1], seg.Pts[2]
				pdf.CurveBezierCubicTo(p.X, p.Y, c2.X, c2.Y, end.X, end.Y)
			case schematic.OpClose:
				pdf.ClosePath()
			}
		}
		pdf.DrawPath(style)
	}

	for _, text := range texts {
		pdf.SetFont(fontFamily, "", text.Size)
		pdf.SetTextColor(int(text.Fill.R), int(text.Fill.G), int(text.Fill.B))
		content := encode(text.Content)
		p := text.At
		switch text.Anchor {
		case "middle":
			p.X -= pdf.GetStringWidth(content) / 2
		case "end":
			p.X -= pdf.GetStringWidth(content)
		}
		pdf.Text(p.X, p.Y, content)
	}

	return scale, height, nil
}

var errUnplaceable = errors.New("drawing has coordinates that cannot be placed on the page")

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
