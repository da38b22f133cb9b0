package protocol

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const maxEventLine = 1 << 20

// ParseEvent decodes one line of the click-event stream. The stream is an
// endless JSON array, so a line may carry the opening bracket or a leading
// comma. ok is false for lines that hold no event.
func ParseEvent(line []byte) (ev ClickEvent, ok bool, err error) {
	trimmed := bytes.TrimSpace(line)
	trimmed = bytes.TrimPrefix(trimmed, []byte("["))
	trimmed = bytes.TrimSpace(trimmed)
	trimmed = bytes.TrimPrefix(trimmed, []byte(","))
	trimmed = bytes.TrimSpace(trimmed)
	trimmed = bytes.TrimSuffix(trimmed, []byte(","))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("]")) {
		return ClickEvent{}, false, nil
	}
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return ClickEvent{}, false, &Error{Line: string(line), Err: err}
	}
	return ev, true, nil
}

// ReadEvents decodes click events from r and sends them on out until r is
// exhausted or ctx is done. Malformed and over-long lines are logged and
// skipped. The returned error is nil on EOF.
func ReadEvents(ctx context.Context, r io.Reader, out chan<- ClickEvent, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	br := bufio.NewReaderSize(r, 64*1024)

	for {
		line, err := readLine(br)
		if errors.Is(err, errLineTooLong) {
			logger.Warn("discarding oversized click event", "error", &Error{Line: string(line), Err: err})
			continue
		}
		if len(line) > 0 {
			ev, ok, perr := ParseEvent(line)
			switch {
			case perr != nil:
				logger.Warn("discarding malformed click event", "error", perr)
			case ok:
				select {
				case out <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

var errLineTooLong = fmt.Errorf("line exceeds %d bytes", maxEventLine)

// readLine returns the next newline-terminated line without the newline.
// A line longer than maxEventLine is consumed up to its newline and
// reported as errLineTooLong together with its first bytes.
func readLine(br *bufio.Reader) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxEventLine+1 {
				tooLong = true
				line = append(line, chunk[:min(len(chunk), 64)]...)
				line = line[:min(len(line), 64)]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			if err == nil {
				err = errLineTooLong
			}
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return line, err
		}
		return bytes.TrimSuffix(line, []byte("\n")), err
	}
}
