package fileprep

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	imageSizeThreshold = 1 * 1024 * 1024
	pdfSizeThreshold   = 2 * 1024 * 1024
	maxImageDimension  = 1920
)

// pdfMetadataKeys are the nonessential document properties cleared before
// re-serialization.
var pdfMetadataKeys = []string{"Title", "Author", "Subject", "Creator", "Producer", "Keywords"}

// Compressor shrinks oversized images and PDFs before upload. Every failure
// is non-fatal: the original bytes are kept and the degradation is logged.
type Compressor struct {
	logger *zap.SugaredLogger
}

func NewCompressor(logger *zap.SugaredLogger) *Compressor {
	return &Compressor{logger: logger}
}

// Process returns a possibly-smaller representation of data. Images above
// 1 MB are downscaled and re-encoded; PDFs above 2 MB are stripped of
// metadata and re-serialized with object-stream compression. Anything else,
// and anything that fails to compress, passes through unchanged.
func (c *Compressor) Process(data []byte, mimeType string) []byte {
	switch {
	case IsImageType(mimeType) && len(data) > imageSizeThreshold:
		out, err := c.compressImage(data, mimeType)
		if err != nil {
			c.logger.Warnw("image compression failed, keeping original",
				"mime_type", mimeType, "size", len(data), "error", err)
			return data
		}
		c.logger.Infow("image compressed", "before", len(data), "after", len(out))
		return out

	case mimeType == "application/pdf" && len(data) > pdfSizeThreshold:
		out, err := c.optimizePDF(data)
		if err != nil {
			c.logger.Warnw("pdf optimization failed, keeping original",
				"size", len(data), "error", err)
			return data
		}
		c.logger.Infow("pdf optimized", "before", len(data), "after", len(out))
		return out

	default:
		return data
	}
}

// compressImage bounds the longest dimension to maxImageDimension and
// re-encodes toward the 1 MB target, preserving the declared MIME type.
func (c *Compressor) compressImage(data []byte, mimeType string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img)

	if mimeType == "image/png" {
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
		return smaller(buf.Bytes(), data), nil
	}

	// JPEG: walk the quality down until the target is met or quality bottoms out.
	var out []byte
	for quality := 80; quality >= 40; quality -= 10 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
		out = buf.Bytes()
		if len(out) <= imageSizeThreshold {
			break
		}
	}
	return smaller(out, data), nil
}

// optimizePDF clears nonessential metadata and re-serializes with pdfcpu's
// object-stream compression. The metadata pass is best-effort; optimization
// alone still counts as success.
func (c *Compressor) optimizePDF(data []byte) ([]byte, error) {
	stripped := data
	var propBuf bytes.Buffer
	if err := api.RemoveProperties(bytes.NewReader(data), &propBuf, pdfMetadataKeys, nil); err == nil && propBuf.Len() > 0 {
		stripped = propBuf.Bytes()
	}

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(stripped), &out, nil); err != nil {
		return nil, fmt.Errorf("optimizing pdf: %w", err)
	}
	return smaller(out.Bytes(), data), nil
}

// downscale bounds the longest image dimension to maxImageDimension,
// preserving aspect ratio.
func downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxImageDimension && h <= maxImageDimension {
		return img
	}

	var dw, dh int
	if w >= h {
		dw = maxImageDimension
		dh = h * maxImageDimension / w
	} else {
		dh = maxImageDimension
		dw = w * maxImageDimension / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

func smaller(candidate, original []byte) []byte {
	if len(candidate) > 0 && len(candidate) < len(original) {
		return candidate
	}
	return original
}
