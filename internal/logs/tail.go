// Package logs reads back the daemon's mirrored log file for the CLI.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls how much of the log file Tail emits and whether it
// keeps following the file for new lines.
type TailOptions struct {
	// Lines is the number of trailing lines for the initial read. Zero or
	// negative means no backlog.
	Lines int
	// Follow keeps polling the file for appended lines until the context
	// is cancelled.
	Follow bool
	// Poll is the follow-mode polling interval. Defaults to 250ms.
	Poll time.Duration
}

// Tail writes the last opts.Lines lines of the log file at path to out. In
// follow mode it then keeps appending new lines until ctx is cancelled, in
// which case it returns nil. A missing file is not an error: follow mode
// waits for it to appear, one-shot mode emits nothing.
func Tail(ctx context.Context, path string, opts TailOptions, out io.Writer) error {
	lines, offset, err := readTrailing(path, opts.Lines)
	if err != nil {
		return err
	}
	if err := writeLines(out, lines); err != nil {
		return err
	}
	if !opts.Follow {
		return nil
	}

	poll := opts.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		lines, next, err := readAppended(path, offset)
		if err != nil {
			return err
		}
		offset = next
		if err := writeLines(out, lines); err != nil {
			return err
		}
	}
}

// readTrailing returns up to limit trailing lines and the file size so a
// follower can resume where the backlog ended.
func readTrailing(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	if limit <= 0 {
		return nil, info.Size(), nil
	}

	scanner := newLineScanner(file)
	ring := make([]string, limit)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}

	return lines, info.Size(), nil
}

// readAppended returns complete lines written past offset and the new offset.
// A truncated or rotated file restarts from the beginning.
func readAppended(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	return lines, info.Size(), nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

func writeLines(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
