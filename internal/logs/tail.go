package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const pollInterval = 250 * time.Millisecond

// TailOptions controls a read. A negative Offset reads the last Limit
// lines; otherwise reading starts at Offset. Follow waits up to Wait for new
// lines when none are available.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	Filter Filter
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads the log file at path. A missing file yields no lines.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	size, err := fileSize(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}

	var result TailResult
	if opts.Offset < 0 {
		result, err = lastLines(path, opts.Limit, opts.Filter)
	} else {
		// A file smaller than the offset was rotated or truncated; resume at its end.
		result, err = scanFrom(path, min(opts.Offset, size), opts.Filter)
	}
	if err != nil || len(result.Lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return result, err
	}
	return follow(ctx, path, result.Offset, opts.Wait, opts.Filter)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, err
		}
		return 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("log path %q is a directory", path)
	}
	return info.Size(), nil
}

// lastLines returns the final limit matching lines and the end-of-file offset.
func lastLines(path string, limit int, filter Filter) (TailResult, error) {
	var window []string
	offset, err := eachLine(path, 0, func(line string) {
		if limit <= 0 || !filter.Match(line) {
			return
		}
		if len(window) == limit {
			window = window[1:]
		}
		window = append(window, line)
	})
	if err != nil {
		return TailResult{}, err
	}
	return TailResult{Lines: window, Offset: offset}, nil
}

func scanFrom(path string, offset int64, filter Filter) (TailResult, error) {
	result := TailResult{Offset: offset}
	next, err := eachLine(path, offset, func(line string) {
		if filter.Match(line) {
			result.Lines = append(result.Lines, line)
		}
	})
	if err != nil {
		return result, err
	}
	result.Offset = next
	return result, nil
}

// eachLine calls fn for every complete line after offset and returns the
// offset just past the last newline. A trailing partial line is left for the
// next read.
func eachLine(path string, offset int64, fn func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return offset, nil
		}
		if err != nil {
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		fn(strings.TrimRight(line, "\r\n"))
	}
}

// follow polls until a matching line appears, wait elapses or ctx ends.
// Non-matching lines still advance the offset.
func follow(ctx context.Context, path string, offset int64, wait time.Duration, filter Filter) (TailResult, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-timer.C:
			return result, nil
		case <-ticker.C:
		}
		next, err := scanFrom(path, result.Offset, filter)
		if err != nil {
			return result, err
		}
		if len(next.Lines) > 0 {
			return next, nil
		}
		result.Offset = next.Offset
	}
}
