package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// ParseError reports a malformed line. Line is 1-based.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader decodes newline-delimited JSON one record at a time. Blank lines are
// skipped; the first malformed line ends the stream with a *ParseError.
type Reader[T any] struct {
	r    *bufio.Reader
	line int
	err  error
}

func NewReader[T any](r io.Reader) *Reader[T] {
	return &Reader[T]{r: bufio.NewReader(r)}
}

// Next returns the next record and the line it came from. It returns io.EOF
// once the input is exhausted.
func (rd *Reader[T]) Next() (T, int, error) {
	var rec T
	if rd.err != nil {
		return rec, rd.line, rd.err
	}

	for {
		raw, readErr := rd.r.ReadBytes('\n')
		if len(raw) == 0 && readErr != nil {
			if errors.Is(readErr, io.EOF) {
				rd.err = io.EOF
			} else {
				rd.err = fmt.Errorf("read line %d: %w", rd.line+1, readErr)
			}
			return rec, rd.line, rd.err
		}
		rd.line++

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			if readErr != nil {
				rd.err = io.EOF
				return rec, rd.line, rd.err
			}
			continue
		}

		if err := json.Unmarshal(trimmed, &rec); err != nil {
			rd.err = &ParseError{Line: rd.line, Err: err}
			return rec, rd.line, rd.err
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			rd.err = fmt.Errorf("read line %d: %w", rd.line, readErr)
		}
		return rec, rd.line, nil
	}
}

// ReadAll drains r, calling fn for each record, and stops at the first error.
func ReadAll[T any](r io.Reader, fn func(rec T, line int)) error {
	rd := NewReader[T](r)
	for {
		rec, line, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(rec, line)
	}
}
