// Package ocr turns captured exam images into ordered text fragments.
package ocr

import (
	"context"
	"image"
	"strings"
)

// Fragment is one recognized piece of text in reading order.
type Fragment struct {
	Text string

	// Confidence is the recognizer's certainty in [0, 1]. Zero means the
	// engine did not report a confidence for this fragment.
	Confidence float64

	// Bounds is the fragment's bounding box in the source image, when the
	// engine provides one.
	Bounds image.Rectangle
}

// Service recognizes text in an image. Implementations must preserve the
// engine's reading order and must return an empty result, not an error,
// for empty input.
type Service interface {
	Recognize(ctx context.Context, imageData []byte) ([]Fragment, error)
}

// JoinText concatenates fragment texts with newline separators, preserving
// the recognizer's reading order.
func JoinText(fragments []Fragment) string {
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		texts = append(texts, f.Text)
	}
	return strings.Join(texts, "\n")
}

// FilterByConfidence drops fragments below the given threshold. A threshold
// of 0 keeps everything, including fragments without a reported confidence.
func FilterByConfidence(fragments []Fragment, min float64) []Fragment {
	if min <= 0 {
		return fragments
	}
	kept := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f.Confidence >= min {
			kept = append(kept, f)
		}
	}
	return kept
}
