// Package sse decodes text/event-stream framed bodies into discrete
// payload events. The decoder buffers partial lines, so the byte stream
// may be split at arbitrary chunk boundaries by the underlying reader.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
)

// DoneSentinel is the payload some backends send to mark the end of a stream.
const DoneSentinel = "[DONE]"

var dataPrefix = []byte("data:")

// Event is a single decoded frame.
type Event struct {
	// Data is the payload following the "data:" prefix.
	Data []byte
	// Raw marks a payload that is not valid JSON. Such frames are kept as
	// plain text because some backends stream bare text deltas.
	Raw bool
}

// Decoder reads SSE frames from a stream. One Decoder serves exactly one
// call; it is not restartable.
type Decoder struct {
	r    *bufio.Reader
	done bool
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next significant event, or io.EOF when the stream is
// exhausted. Blank payloads, the [DONE] sentinel, comments and non-data
// fields are skipped.
func (d *Decoder) Next() (*Event, error) {
	if d.done {
		return nil, io.EOF
	}
	for {
		line, err := d.r.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			d.done = true
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "failed to read stream")
		}

		ev, ok := parseLine(line)
		if ok {
			return ev, nil
		}

		if err != nil {
			d.done = true
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "failed to read stream")
		}
	}
}

// parseLine returns the event carried by a single line, if any. A line is
// significant only when it starts with the "data:" prefix.
func parseLine(line []byte) (*Event, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 || string(payload) == DoneSentinel {
		return nil, false
	}

	ev := &Event{Data: payload}
	if !json.Valid(payload) {
		ev.Raw = true
	}
	return ev, true
}

// DecodeAll drains the stream and returns every significant event.
func DecodeAll(r io.Reader) ([]*Event, error) {
	d := NewDecoder(r)
	var events []*Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}
