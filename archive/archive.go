// Package archive reads zstandard-compressed NDJSON dumps, such as the
// Reddit submission archives.
package archive

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Reddit dumps are compressed with a long window.
const maxWindow = 1 << 31

const maxLineSize = 16 << 20

// LineError reports a line that could not be parsed. Reading can continue
// after it.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Reader decodes one JSON object per line.
type Reader struct {
	dec     *zstd.Decoder
	scanner *bufio.Scanner
	line    int
}

// NewReader starts decompressing r.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxWindow(maxWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd stream: %w", err)
	}

	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &Reader{dec: dec, scanner: scanner}, nil
}

// Next returns the next object. It returns io.EOF at the end of the stream
// and a *LineError for a line that is not a JSON object. Blank lines are
// skipped.
func (r *Reader) Next() (map[string]any, error) {
	for r.scanner.Scan() {
		r.line++

		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, &LineError{Line: r.line, Err: err}
		}
		return obj, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return nil, io.EOF
}

// Close releases the decoder.
func (r *Reader) Close() {
	r.dec.Close()
}

// Preview is the result of reading the head of an archive.
type Preview struct {
	Objects []map[string]any
	Errors  []*LineError
}

// ReadPreview reads up to limit objects from r. Unparseable lines are
// collected and do not count toward the limit. A limit of 0 reads
// everything.
func ReadPreview(r io.Reader, limit int) (*Preview, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	p := &Preview{}
	for limit <= 0 || len(p.Objects) < limit {
		obj, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		var lineErr *LineError
		if errors.As(err, &lineErr) {
			p.Errors = append(p.Errors, lineErr)
			continue
		}
		if err != nil {
			return p, err
		}

		p.Objects = append(p.Objects, obj)
	}

	return p, nil
}

// PreviewFile opens path and reads its preview.
func PreviewFile(path string, limit int) (*Preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	return ReadPreview(f, limit)
}
