package renderer

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogoDecodes(t *testing.T) {
	raw, err := DecodeLogo(DefaultLogo)
	require.NoError(t, err)

	logo, err := prepareLogo(raw)
	require.NoError(t, err)
	assert.Equal(t, 240, logo.width)
	assert.Equal(t, 80, logo.height)
	assert.Equal(t, "PNG", logo.kind)
}

func TestDecodeLogoPadding(t *testing.T) {
	want := []byte("logo!")
	encoded := base64.StdEncoding.EncodeToString(want)
	require.True(t, strings.HasSuffix(encoded, "="))

	got, err := DecodeLogo(strings.TrimRight(encoded, "="))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = DecodeLogo(encoded)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = DecodeLogo("a")
	assert.Error(t, err)
	_, err = DecodeLogo("ab$d")
	assert.Error(t, err)
}

func TestPrepareLogoKeepsSmallJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 30, 20)), nil))

	logo, err := prepareLogo(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "JPG", logo.kind)
	assert.Equal(t, buf.Bytes(), logo.data)
}

func TestPrepareLogoDownsamplesWideImages(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1200, 300))
	for x := 0; x < 1200; x++ {
		src.Set(x, 150, color.NRGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	logo, err := prepareLogo(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1200, logo.width, "native size drives the aspect ratio")
	assert.Equal(t, 300, logo.height)

	cfg, err := png.DecodeConfig(bytes.NewReader(logo.data))
	require.NoError(t, err)
	assert.Equal(t, maxLogoPixels, cfg.Width)
	assert.Equal(t, 150, cfg.Height)
}

func TestPrepareLogoRejectsGarbage(t *testing.T) {
	_, err := prepareLogo([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "\x95 Fen\xeatre \x80 ?", encode("• Fenêtre € ☃"))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\t c", 10))
	assert.Equal(t, "abcdefg...", oneLine("abcdefghijklmnop", 10))
}
