package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ParseRequest decodes a single request object.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := unmarshalStrict(data, &req); err != nil {
		return Request{}, err
	}
	if err := req.validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// ParseReply decodes a single reply object.
func ParseReply(data []byte) (Reply, error) {
	var reply Reply
	if err := unmarshalStrict(data, &reply); err != nil {
		return Reply{}, err
	}
	if err := reply.validate(); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// Marshal encodes a Request or Reply without a trailing newline.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return data, nil
}

// unmarshalStrict rejects unknown variants and trailing data.
func unmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}
	return nil
}

// Decoder reads newline-delimited values from a stream.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)
	return &Decoder{scanner: scanner}
}

// ReadRequest returns the next request. Blank lines are skipped.
// Returns io.EOF when the stream ends cleanly.
func (d *Decoder) ReadRequest() (Request, error) {
	line, err := d.next()
	if err != nil {
		return Request{}, err
	}
	return ParseRequest(line)
}

// ReadReply returns the next reply. Blank lines are skipped.
func (d *Decoder) ReadReply() (Reply, error) {
	line, err := d.next()
	if err != nil {
		return Reply{}, err
	}
	return ParseReply(line)
}

func (d *Decoder) next() ([]byte, error) {
	for d.scanner.Scan() {
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
	if err := d.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, ErrLineTooLong)
		}
		return nil, err
	}
	return nil, io.EOF
}

// Encoder writes newline-delimited values to a stream.
// Safe for concurrent use; each value is written with a single Write call.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteRequest writes one request line.
func (e *Encoder) WriteRequest(req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	return e.writeLine(req)
}

// WriteReply writes one reply line.
func (e *Encoder) WriteReply(reply Reply) error {
	if err := reply.validate(); err != nil {
		return err
	}
	return e.writeLine(reply)
}

func (e *Encoder) writeLine(v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(data)
	return err
}
