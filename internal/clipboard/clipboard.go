// Package clipboard copies generated passwords to the system clipboard and
// clears them again.
package clipboard

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

var (
	writeAll = clipboard.WriteAll
	readAll  = clipboard.ReadAll
)

// Copy places text on the clipboard.
func Copy(text string) error {
	if err := writeAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// ClearAfter waits for timeout (or ctx) and then clears the clipboard if it
// still holds text. It returns true if it cleared the clipboard.
func ClearAfter(ctx context.Context, text string, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	current, err := readAll()
	if err != nil {
		return false, fmt.Errorf("failed to read clipboard: %w", err)
	}
	if current != text {
		return false, nil
	}
	if err := Clear(); err != nil {
		return false, err
	}
	return true, nil
}

// IsAvailable returns true if clipboard functionality is available
func IsAvailable() bool {
	if clipboard.Unsupported {
		return false
	}
	_, err := readAll()
	return err == nil
}

// Clear clears the clipboard
func Clear() error {
	if err := writeAll(""); err != nil {
		return fmt.Errorf("failed to clear clipboard: %w", err)
	}
	return nil
}
