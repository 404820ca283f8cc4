package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Spin shows an indeterminate spinner on w until fn returns. Nothing is
// drawn when quiet is set, e.g. for JSON log output.
func Spin[T any](ctx context.Context, w io.Writer, quiet bool, description string, fn func(context.Context) (T, error)) (T, error) {
	if quiet {
		return fn(ctx)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := bar.Add(1); err != nil {
					slog.Warn("Failed to update spinner", "error", err)
				}
			}
		}
	}()

	v, err := fn(ctx)
	close(done)
	if ferr := bar.Finish(); ferr != nil {
		slog.Warn("Failed to finish spinner", "error", ferr)
	}
	return v, err
}
