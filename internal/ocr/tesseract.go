package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text with the system Tesseract installation.
// A fresh gosseract client is created per call; the C API is not safe to
// share across recognitions with different images.
type Tesseract struct {
	language string
	logger   *slog.Logger
}

var _ Service = (*Tesseract)(nil)

// NewTesseract creates an engine for the given Tesseract language code
// (e.g. "eng", "chi_sim"). The language data must be installed.
func NewTesseract(language string, logger *slog.Logger) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{language: language, logger: logger}
}

// Recognize runs OCR over the image bytes and returns line-level fragments
// in reading order. Empty input yields an empty result.
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte) ([]Fragment, error) {
	if len(imageData) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prepared, err := t.preprocess(imageData)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return nil, fmt.Errorf("failed to set OCR language %q: %w", t.language, err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return nil, fmt.Errorf("failed to set OCR image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil && len(boxes) > 0 {
		fragments := make([]Fragment, 0, len(boxes))
		for _, box := range boxes {
			text := strings.TrimSpace(box.Word)
			if text == "" {
				continue
			}
			fragments = append(fragments, Fragment{
				Text:       text,
				Confidence: box.Confidence / 100.0,
				Bounds:     box.Box,
			})
		}
		return fragments, nil
	}

	// Line extraction can fail on some Tesseract builds; fall back to the
	// full text split into lines, without confidences.
	t.logger.Debug("line-level OCR unavailable, falling back to full text", "error", err)
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	var fragments []Fragment
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fragments = append(fragments, Fragment{Text: line})
		}
	}
	return fragments, nil
}

// preprocess decodes the capture and re-encodes it as grayscale PNG, which
// Tesseract handles more reliably than anti-aliased color screenshots.
func (t *Tesseract) preprocess(imageData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode captured image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.Grayscale(img)); err != nil {
		return nil, fmt.Errorf("failed to encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}
