package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nxadm/tail"
)

// PrintLogTail writes the last n lines of the file at path to out.
// n <= 0 writes the whole file.
func PrintLogTail(path string, n int, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no diagnostic log at %s yet", path)
		}
		return err
	}
	defer func() { _ = f.Close() }()

	var ring []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		ring = append(ring, sc.Text())
		if n > 0 && len(ring) > n {
			ring = ring[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	for _, line := range ring {
		fmt.Fprintln(out, line)
	}
	return nil
}

// FollowLog streams the file at path to out until ctx is done, following
// rotation and waiting for the file to appear. Only lines written after
// the call are streamed when fromEnd is set.
func FollowLog(ctx context.Context, path string, fromEnd bool, out io.Writer) error {
	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Logger:    tail.DiscardingLogger,
	}
	if fromEnd {
		if _, err := os.Stat(path); err == nil {
			cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
		}
	}
	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to tail log: %w", err)
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok || line == nil {
				return nil
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(out, line.Text)
		}
	}
}
