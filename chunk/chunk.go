// Package chunk packs lines into messages no longer than a maximum length.
package chunk

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

type Flush func(message string) error

// Writer accumulates lines and flushes the buffer whenever appending the next
// line would make it longer than Max characters. Lines are kept with their
// terminators and count toward the length with them.
type Writer struct {
	max     int
	flush   Flush
	buffer  strings.Builder
	length  int
	flushed int
}

func NewWriter(max int, flush Flush) *Writer {
	if max < 1 {
		max = 1
	}
	return &Writer{max: max, flush: flush}
}

// WriteLine appends line. Blank lines are dropped; lines longer than the
// maximum are split.
func (w *Writer) WriteLine(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	for _, piece := range split(line, w.max) {
		n := utf8.RuneCountInString(piece)
		if w.length+n > w.max {
			if err := w.Flush(); err != nil {
				return err
			}
		}
		w.buffer.WriteString(piece)
		w.length += n
	}
	return nil
}

// Flush sends the buffer if it holds anything.
func (w *Writer) Flush() error {
	if w.length == 0 {
		return nil
	}
	message := w.buffer.String()
	w.buffer.Reset()
	w.length = 0
	w.flushed++
	return w.flush(message)
}

// Close flushes what is left.
func (w *Writer) Close() error {
	return w.Flush()
}

// Flushed is the number of messages sent so far.
func (w *Writer) Flushed() int {
	return w.flushed
}

func split(line string, max int) []string {
	if utf8.RuneCountInString(line) <= max {
		return []string{line}
	}
	var pieces []string
	runes := []rune(line)
	for len(runes) > max {
		pieces = append(pieces, string(runes[:max]))
		runes = runes[max:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}

// Lines streams r line by line through a Writer. Invalid UTF-8 is dropped.
func Lines(r io.Reader, max int, flush Flush) error {
	writer := NewWriter(max, flush)
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if err := writer.WriteLine(strings.ToValidUTF8(line, "")); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	return writer.Close()
}
