package protocol

import (
	"bytes"
	"io"
)

// LineResult is the outcome of one LineReader.ReadLine call.
type LineResult int

const (
	// LineOk means a '\n'-terminated line was read; ReadLine's string result
	// holds it without the trailing newline.
	LineOk LineResult = iota
	// LineNoLF means bytes were read but no newline has arrived yet; they
	// remain buffered for the next call, never discarded.
	LineNoLF
	// LineEmpty means EOF was reached with no pending bytes.
	LineEmpty
)

// LineReader incrementally reads '\n'-terminated lines from a growing file,
// tolerating a writer that is still appending to it. Partial lines are
// preserved across calls rather than discarded, so a line is never split
// across two deliveries.
type LineReader struct {
	r   io.Reader
	buf bytes.Buffer
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r}
}

// ReadLine attempts to produce one complete line. It never blocks beyond one
// underlying Read call.
func (lr *LineReader) ReadLine() (LineResult, string, error) {
	if idx := bytes.IndexByte(lr.buf.Bytes(), '\n'); idx >= 0 {
		return lr.takeLine(idx)
	}

	chunk := make([]byte, 4096)
	n, err := lr.r.Read(chunk)
	if n > 0 {
		lr.buf.Write(chunk[:n])
	}
	if idx := bytes.IndexByte(lr.buf.Bytes(), '\n'); idx >= 0 {
		return lr.takeLine(idx)
	}
	if err != nil {
		if err == io.EOF {
			if lr.buf.Len() == 0 {
				return LineEmpty, "", nil
			}
			return LineNoLF, "", nil
		}
		return LineEmpty, "", err
	}
	if n == 0 && lr.buf.Len() == 0 {
		return LineEmpty, "", nil
	}
	return LineNoLF, "", nil
}

func (lr *LineReader) takeLine(newlineIdx int) (LineResult, string, error) {
	full := lr.buf.Bytes()
	line := string(full[:newlineIdx])
	rest := append([]byte(nil), full[newlineIdx+1:]...)
	lr.buf.Reset()
	lr.buf.Write(rest)
	return LineOk, line, nil
}

// LineWriter appends '\n'-terminated lines to an underlying writer in a
// single Write call each, so a concurrent reader never observes a partial
// line.
type LineWriter struct {
	w io.Writer
}

func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

func (lw *LineWriter) WriteLine(line string) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	_, err := lw.w.Write(buf)
	return err
}
