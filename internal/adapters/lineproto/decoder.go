package lineproto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/Thnoxs/localy-v1/internal/domain"
)

const readChunkSize = 4096

// MalformedSink receives every line that could not be decoded. It may be nil.
type MalformedSink func(line []byte, err error)

// Decoder turns arbitrarily chunked child output into events. Unterminated text is
// kept until the next newline or Flush. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf  []byte
	sink MalformedSink
}

func NewDecoder(sink MalformedSink) *Decoder {
	return &Decoder{sink: sink}
}

// Feed appends chunk and returns the events of every line it completed.
func (d *Decoder) Feed(chunk []byte) []domain.Event {
	d.buf = append(d.buf, chunk...)

	var events []domain.Event
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		if ev, ok := d.decodeLine(d.buf[:idx]); ok {
			events = append(events, ev)
		}
		d.buf = d.buf[idx+1:]
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}

	return events
}

// Flush decodes whatever unterminated text is left, as at process exit.
func (d *Decoder) Flush() []domain.Event {
	rest := d.buf
	d.buf = nil
	if ev, ok := d.decodeLine(rest); ok {
		return []domain.Event{ev}
	}
	return nil
}

// Pending reports the number of buffered bytes not yet terminated by a newline.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func (d *Decoder) decodeLine(line []byte) (domain.Event, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return domain.Event{}, false
	}

	ev, err := ParseEvent(trimmed)
	if err != nil {
		if d.sink != nil {
			d.sink(trimmed, err)
		}
		return domain.Event{}, false
	}

	return ev, true
}

// ParseEvent decodes a single trimmed line. Anything but a JSON object is malformed.
func ParseEvent(line []byte) (domain.Event, error) {
	if len(line) == 0 || line[0] != '{' {
		return domain.Event{}, fmt.Errorf("%w: not a json object", domain.ErrMalformedEventLine)
	}

	var rec domain.WireRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %w", domain.ErrMalformedEventLine, err)
	}

	return domain.ClassifyEvent(rec, line), nil
}

// Decode yields the events read from r until EOF. The sequence consumes r and
// cannot be restarted. Read errors other than EOF end the sequence after the
// buffered text is flushed.
func Decode(r io.Reader, sink MalformedSink) iter.Seq[domain.Event] {
	return func(yield func(domain.Event) bool) {
		d := NewDecoder(sink)
		chunk := make([]byte, readChunkSize)

		for {
			n, err := r.Read(chunk)
			if n > 0 {
				for _, ev := range d.Feed(chunk[:n]) {
					if !yield(ev) {
						return
					}
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && sink != nil {
					sink(nil, fmt.Errorf("read child output: %w", err))
				}
				break
			}
		}

		for _, ev := range d.Flush() {
			if !yield(ev) {
				return
			}
		}
	}
}
