package event

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// Event stream format: one JSON-encoded Event per line.
//
//	<json>\n

// MaxLineSize is the largest event line a Decoder will accept (16 MiB).
const MaxLineSize = 16 * 1024 * 1024

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encoder writes events as newline-delimited JSON. It is a Sink and safe for
// use from several goroutines.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode serialises ev and writes it followed by a newline.
func (e *Encoder) Encode(ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	line := append(raw, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(line)
	return err
}

// Notify implements Sink. Write errors are dropped. Encode writes
// synchronously, so wrap the Encoder in a Queue when the writer may block.
func (e *Encoder) Notify(ev Event) { _ = e.Encode(ev) }

// Decoder reads newline-delimited events.
type Decoder struct {
	sc *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Decoder{sc: sc}
}

// Decode reads the next event. It returns io.EOF at the end of the stream.
// Blank lines are skipped.
func (d *Decoder) Decode() (Event, error) {
	for d.sc.Scan() {
		line := d.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return Event{}, fmt.Errorf("event decode: %w", err)
		}
		return ev, nil
	}
	if err := d.sc.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
