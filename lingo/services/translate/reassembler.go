package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	lerrors "lingo/lingo/errors"
)

const (
	dataPrefix = "data: "
	sentinel   = "[DONE]"

	// DefaultMaxLine bounds a single stream line held while waiting for its newline.
	DefaultMaxLine = 1 << 20
)

// streamEvent is the only payload shape accepted from the provider. Anything
// that does not decode into it contributes no text.
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Reassembler turns a line-framed completion stream into accumulated text.
// Only the unconsumed suffix of the stream is kept between Feed calls, so
// each byte is scanned once no matter how the stream is chunked.
type Reassembler struct {
	// MaxLine overrides DefaultMaxLine when positive.
	MaxLine int

	pending  []byte
	scanned  int
	text     strings.Builder
	finished bool
	err      error
}

// Feed appends chunk and consumes every complete line in it. It returns the
// text appended by this chunk.
func (r *Reassembler) Feed(chunk []byte) string {
	r.pending = append(r.pending, chunk...)
	before := r.text.Len()

	consumed := 0
	for {
		i := bytes.IndexByte(r.pending[r.scanned:], '\n')
		if i < 0 {
			break
		}
		end := r.scanned + i
		r.consumeLine(r.pending[consumed:end])
		consumed = end + 1
		r.scanned = consumed
	}
	if consumed > 0 {
		r.pending = append(r.pending[:0], r.pending[consumed:]...)
	}
	r.scanned = len(r.pending)
	if r.err == nil && len(r.pending) > r.maxLine() {
		r.err = fmt.Errorf("%w: line exceeds %d bytes without newline", lerrors.ErrProvider, r.maxLine())
	}

	return r.text.String()[before:]
}

// Flush consumes a trailing line that never got its newline. Call it once,
// when the provider closes the stream.
func (r *Reassembler) Flush() string {
	before := r.text.Len()
	if len(r.pending) > 0 {
		r.consumeLine(r.pending)
		r.pending = r.pending[:0]
		r.scanned = 0
	}
	return r.text.String()[before:]
}

func (r *Reassembler) Text() string {
	return r.text.String()
}

func (r *Reassembler) Finished() bool {
	return r.finished
}

// Err is set once a line outgrows MaxLine. The stream cannot be trusted
// after that and the session should be dropped.
func (r *Reassembler) Err() error {
	return r.err
}

func (r *Reassembler) maxLine() int {
	if r.MaxLine > 0 {
		return r.MaxLine
	}
	return DefaultMaxLine
}

// Pending reports how many bytes are held waiting for the rest of their line.
func (r *Reassembler) Pending() int {
	return len(r.pending)
}

func (r *Reassembler) consumeLine(line []byte) {
	if r.finished {
		return
	}
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	payload := bytes.TrimPrefix(line, []byte(dataPrefix))
	if string(payload) == sentinel {
		r.finished = true
		return
	}
	delta, ok := decodeDelta(payload)
	if !ok {
		return
	}
	r.text.WriteString(delta)
}

func decodeDelta(payload []byte) (string, bool) {
	var ev streamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", false
	}
	if len(ev.Choices) == 0 || ev.Choices[0].Delta.Content == nil {
		return "", true
	}
	return *ev.Choices[0].Delta.Content, true
}

// Reassemble parses a complete stream buffer from scratch. For any split of
// buf into chunks, feeding them in order and flushing yields the same text.
func Reassemble(buf []byte) (text string, finished bool) {
	var r Reassembler
	r.Feed(buf)
	r.Flush()
	return r.Text(), r.Finished()
}
