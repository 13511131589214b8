package renderer

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

//go:embed assets/logo.b64
var embeddedLogo string

// DefaultLogo - логотип компании в base64, печатается на каждом листе.
var DefaultLogo = strings.TrimSpace(embeddedLogo)

// maxLogoPixels ограничивает ширину растра в документе, более широкие
// логотипы уменьшаются перед встраиванием.
const maxLogoPixels = 600

type logoImage struct {
	data   []byte
	kind   string // тип изображения в терминах fpdf
	width  int    // исходный размер в пикселях
	height int
}

// DecodeLogo сначала строго декодирует base64, а при ошибке повторяет
// попытку, дополнив строку '=' до длины, кратной четырем.
func DecodeLogo(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if pad := (4 - len(s)%4) % 4; pad > 0 {
		if data, perr := base64.StdEncoding.DecodeString(s + strings.Repeat("=", pad)); perr == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("decode logo: %w", err)
}

// prepareLogo читает исходный размер raw и приводит изображение к формату,
// который fpdf встраивает без проблем. JPEG в пределах ограничения идет
// как есть, остальное перекодируется в 8-битный PNG.
func prepareLogo(raw []byte) (*logoImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read logo image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("logo image has empty size %dx%d", cfg.Width, cfg.Height)
	}

	logo := &logoImage{data: raw, kind: "JPG", width: cfg.Width, height: cfg.Height}
	if format == "jpeg" && cfg.Width <= maxLogoPixels {
		return logo, nil
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s logo: %w", format, err)
	}

	w, h := cfg.Width, cfg.Height
	if w > maxLogoPixels {
		h = max(1, int(math.Round(float64(h)*maxLogoPixels/float64(w))))
		w = maxLogoPixels
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == cfg.Width {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode logo: %w", err)
	}
	logo.data = buf.Bytes()
	logo.kind = "PNG"
	return logo, nil
}
