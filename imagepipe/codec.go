// Package imagepipe turns uploaded images into board-storable payloads: it
// recompresses them under a byte budget and splits the encoded body into the
// fixed number of fragments the row layout reserves for them.
package imagepipe

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"

	_ "image/gif"
	_ "image/png"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

const (
	// Display box bounds. Larger sources are downscaled, smaller ones
	// upscaled, so storage cost and fidelity stay comparable across inputs.
	maxEdge = 1200
	minEdge = 600

	startQuality = 90
	minQuality   = 50
	qualityStep  = 10
)

// ErrSizeExceeded reports that no quality setting fits the byte budget. The
// message is surfaced verbatim to the end user.
var ErrSizeExceeded = errors.New("image too large to compress")

// Encoded is the codec output: a data-URI preamble plus the base64 body it
// precedes. Width, Height and Quality describe the final encode.
type Encoded struct {
	Header  string
	Body    string
	Width   int
	Height  int
	Quality int
}

// Encode decodes r, fits it to the display box and JPEG-encodes it with a
// linear quality walk until the raw encoded size is within budget bytes.
// The walk is monotonic, not binary: the quality axis has five stops and
// re-encoding is cheap next to upload latency.
func Encode(r io.Reader, budget int64) (*Encoded, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img := fit(src)
	bounds := img.Bounds()

	var buf bytes.Buffer
	for quality := startQuality; quality >= minQuality; quality -= qualityStep {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if int64(buf.Len()) <= budget {
			logrus.WithFields(logrus.Fields{
				"format":  format,
				"quality": quality,
				"bytes":   buf.Len(),
				"width":   bounds.Dx(),
				"height":  bounds.Dy(),
			}).Debug("image encoded within budget")
			return &Encoded{
				Header:  "data:image/jpeg;base64,",
				Body:    base64.StdEncoding.EncodeToString(buf.Bytes()),
				Width:   bounds.Dx(),
				Height:  bounds.Dy(),
				Quality: quality,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w (budget %d bytes, smallest encode %d bytes)", ErrSizeExceeded, budget, buf.Len())
}

// fit scales src into the [minEdge, maxEdge] display box, keyed on the
// longer side. Sources already inside the box pass through untouched.
func fit(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longer := w
	if h > longer {
		longer = h
	}

	var factor float64
	switch {
	case longer > maxEdge:
		factor = float64(maxEdge) / float64(longer)
	case longer > 0 && longer < minEdge:
		factor = float64(minEdge) / float64(longer)
	default:
		return src
	}

	dw := int(math.Round(float64(w) * factor))
	dh := int(math.Round(float64(h) * factor))
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}
