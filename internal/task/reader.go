// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	// maxReadAttempts is the number of tries before a read gives up.
	maxReadAttempts = 3

	// retryBaseDelay is the base delay for exponential backoff.
	// Delays run 100ms, 200ms between the three attempts.
	retryBaseDelay = 100 * time.Millisecond
)

// errFileTooLarge marks reads refused by the size guard. Not exported;
// callers see it wrapped in ErrReadFailed.
var errFileTooLarge = errors.New("file exceeds size limit")

// Reader reads conversation files with retries and a size guard.
type Reader struct {
	// MaxFileSize refuses files larger than this many bytes; 0 disables
	// the guard.
	// SECURITY: The extensions have written multi-hundred-MB histories;
	// the guard keeps one runaway task from exhausting memory.
	MaxFileSize int64

	logger *zap.Logger
}

// NewReader creates a Reader. A nil logger is replaced with a nop.
func NewReader(maxFileSize int64, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{MaxFileSize: maxFileSize, logger: logger}
}

// ReadWithRetry reads the file at path, retrying any failure with
// exponential backoff. The extensions replace these files with rename
// cycles, so a read can catch a moment of absence or a partial swap;
// a short retry usually lands after the rename settles. Absence is
// retried like every other failure for exactly that reason.
//
// The one early exit is the size guard: an oversized file cannot
// shrink between attempts. The final error wraps ErrReadFailed and the
// last cause, so both errors.Is(err, ErrReadFailed) and
// errors.Is(err, fs.ErrNotExist) work.
func (r *Reader) ReadWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<(attempt-1)) * retryBaseDelay):
			}
		}

		data, err := r.readOnce(path)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if errors.Is(err, errFileTooLarge) {
			break
		}
		r.logger.Debug("read attempt failed",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, ErrReadFailed.WithCause(lastErr)
}

// readOnce performs a single guarded read.
func (r *Reader) readOnce(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if r.MaxFileSize > 0 && info.Size() > r.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", errFileTooLarge, info.Size(), r.MaxFileSize)
	}
	return os.ReadFile(path)
}

// runWithTimeout races fn against a timer. On expiry ok is false and
// fn is abandoned: it finishes in the background and its result is
// dropped into the buffered channel, never blocking anyone.
func runWithTimeout(timeout time.Duration, fn func() []Message) ([]Message, bool) {
	done := make(chan []Message, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msgs := <-done:
		return msgs, true
	case <-timer.C:
		return nil, false
	}
}

// ReadMessagesWithTimeout extracts messages from path with a hard
// deadline. An interactive client is waiting on every call, so a file
// that cannot be read and parsed inside the timeout yields an empty
// slice and a logged timeout instead of a hung request. Read and parse
// errors degrade the same way.
func (e *Extractor) ReadMessagesWithTimeout(ctx context.Context, path string, opts Options, timeout time.Duration) []Message {
	msgs, ok := runWithTimeout(timeout, func() []Message {
		msgs, err := e.Extract(ctx, path, opts)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				e.logger.Warn("conversation read failed",
					zap.String("path", path),
					zap.Error(err))
			}
			return nil
		}
		return msgs
	})
	if !ok {
		e.logger.Warn("conversation read timed out",
			zap.String("path", path),
			zap.Duration("timeout", timeout),
			zap.Error(ErrTimeout))
		return nil
	}
	return msgs
}
