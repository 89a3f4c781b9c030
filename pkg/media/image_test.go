package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFit_Downscales(t *testing.T) {
	p := NewImageProcessor(100)

	out, info, err := p.Fit(encodePNG(t, 400, 200), "persona.png")
	require.NoError(t, err)

	assert.Equal(t, 100, info.Width)
	assert.Equal(t, 50, info.Height)
	assert.Equal(t, "PNG", info.Format)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, cfg.Width)
}

func TestFit_SmallImageUnchanged(t *testing.T) {
	data := encodePNG(t, 64, 64)

	out, info, err := NewImageProcessor(100).Fit(data, "persona.png")
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, 64, info.Width)
}

func TestFit_Errors(t *testing.T) {
	p := NewImageProcessor(100)

	_, _, err := p.Fit(encodePNG(t, 10, 10), "persona.webp")
	assert.Error(t, err, "webp is not an encodable format")

	_, _, err = p.Fit([]byte("not an image"), "persona.png")
	assert.Error(t, err)
}
