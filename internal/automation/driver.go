// Package automation drives the grading page in a real browser.
package automation

import (
	"context"
	"fmt"
	"time"
)

// Driver is the page-automation capability the pipeline depends on.
// Implementations control a browser; tests substitute fakes.
type Driver interface {
	// WaitForElement blocks until the selector matches a visible element,
	// failing with *TimeoutError when the timeout elapses first.
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error

	// CaptureElement screenshots the first element matching the selector,
	// failing with *NotFoundError when nothing matches.
	CaptureElement(ctx context.Context, selector string) ([]byte, error)

	// FillField sets the value of a form field.
	FillField(ctx context.Context, selector, value string) error

	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error
}

// TimeoutError reports that an element did not appear in time.
type TimeoutError struct {
	Selector string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for element %q", e.Timeout, e.Selector)
}

// NotFoundError reports that a selector matched no element on the page.
type NotFoundError struct {
	Selector string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no element matches selector %q", e.Selector)
}
