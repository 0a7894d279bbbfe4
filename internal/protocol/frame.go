package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// DefaultMaxFrameBytes bounds a single request or response frame.
const DefaultMaxFrameBytes = 1 << 20

// Reader splits a byte stream into newline-delimited frames. A frame may
// arrive across many reads and one read may carry many frames.
type Reader struct {
	br  *bufio.Reader
	max int
	buf []byte
}

// NewReader returns a Reader that rejects frames longer than maxBytes.
func NewReader(r io.Reader, maxBytes int) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &Reader{br: bufio.NewReader(r), max: maxBytes}
}

// ReadFrame returns the next non-blank frame without its delimiter. A final
// frame that ends at EOF without a newline is still returned. io.EOF means the
// peer closed the stream between frames.
func (r *Reader) ReadFrame() ([]byte, error) {
	for {
		r.buf = r.buf[:0]
		for {
			chunk, err := r.br.ReadSlice('\n')
			r.buf = append(r.buf, chunk...)
			// Longest valid line: max payload bytes plus "\r\n".
			if len(r.buf) > r.max+2 {
				return nil, ErrFrameTooLarge
			}
			if err == nil {
				break
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, io.EOF) && len(bytes.TrimSpace(r.buf)) > 0 {
				if len(r.buf) > r.max {
					return nil, ErrFrameTooLarge
				}
				return append([]byte(nil), bytes.TrimSpace(r.buf)...), nil
			}
			return nil, err
		}

		if len(trimDelimiter(r.buf)) > r.max {
			return nil, ErrFrameTooLarge
		}
		line := bytes.TrimSpace(r.buf)
		if len(line) == 0 {
			continue
		}
		return append([]byte(nil), line...), nil
	}
}

// trimDelimiter strips the trailing "\n" or "\r\n".
func trimDelimiter(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// Writer writes newline-terminated frames.
type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes data followed by a newline in a single Write call.
func (w *Writer) WriteFrame(data []byte) error {
	w.buf = append(w.buf[:0], data...)
	w.buf = append(w.buf, '\n')
	_, err := w.w.Write(w.buf)
	return err
}
