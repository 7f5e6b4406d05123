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

const pollInterval = 250 * time.Millisecond

// LastLines returns up to limit trailing lines of the file at path,
// along with the byte offset at which follow mode should resume.
// A missing file yields no lines and offset zero.
func LastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
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

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// Follow polls the file from offset and invokes emit for each complete
// new line until the context is cancelled. It tolerates the file being
// truncated or replaced by restarting from the beginning.
func Follow(ctx context.Context, path string, offset int64, emit func(line string)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		lines, newOffset, err := readFrom(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
		offset = newOffset

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readFrom reads complete lines starting at offset. When the file has
// shrunk below the offset it rereads from the start.
func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}

	newOffset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, offset, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, newOffset, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
