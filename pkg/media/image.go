package media

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

type ImageInfo struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
}

// ImageProcessor shrinks reference images before they are inlined into a request.
type ImageProcessor struct {
	maxSide int
	quality int
}

func NewImageProcessor(maxSide int) *ImageProcessor {
	return &ImageProcessor{maxSide: maxSide, quality: 90}
}

// Fit scales data down so its longest side is at most maxSide, re-encoding in the
// format implied by filename. Images already small enough are returned unchanged.
func (p *ImageProcessor) Fit(data []byte, filename string) ([]byte, *ImageInfo, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("detect format: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	info := &ImageInfo{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format.String(),
		SizeBytes: int64(len(data)),
	}

	if p.maxSide <= 0 || (info.Width <= p.maxSide && info.Height <= p.maxSide) {
		return data, info, nil
	}

	resized := imaging.Fit(img, p.maxSide, p.maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, nil, fmt.Errorf("encode image: %w", err)
	}

	info.Width = resized.Bounds().Dx()
	info.Height = resized.Bounds().Dy()
	info.SizeBytes = int64(buf.Len())

	return buf.Bytes(), info, nil
}
