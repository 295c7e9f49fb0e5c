// Package wire frames the event stream a worker process sends to its supervisor.
//
// Each frame is a 4-byte big-endian payload length followed by a msgpack
// payload. A worker writes, in order:
//
//	plan           once, with the selected case names
//	start          before each case runs
//	message_chunk  zero or more leading parts of a long outcome message
//	outcome        after each case is classified
//	done           once, after the last case
//
// A stream that ends without done means the worker died mid-run.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// LengthPrefixSize is the width of the big-endian payload length.
	LengthPrefixSize = 4
	// MaxFrameSize bounds one plan, start, chunk, outcome or done frame on the wire.
	MaxFrameSize = 1024 * 1024
	// MaxPayloadSize is what remains of MaxFrameSize after the prefix.
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// MaxChunkSize is the largest message slice carried by one frame. It
	// leaves room in MaxPayloadSize for the case name and msgpack overhead.
	MaxChunkSize = 512 * 1024
)

// Frame types.
const (
	TypePlan    = "plan"
	TypeStart   = "start"
	TypeOutcome = "outcome"
	TypeDone    = "done"

	// TypeMessageChunk carries part of the message of the next outcome
	// frame for the same case. Parts are sent in order.
	TypeMessageChunk = "message_chunk"
)

// Frame is one message of the worker stream. Fields unused by a type are empty.
type Frame struct {
	Type string `msgpack:"type"`

	// plan
	Names       []string `msgpack:"names,omitempty"`
	Fingerprint string   `msgpack:"fingerprint,omitempty"`

	// start, outcome
	Index int    `msgpack:"index"`
	Name  string `msgpack:"name,omitempty"`

	// outcome; message_chunk uses Message only
	Kind       string `msgpack:"kind,omitempty"`
	Message    string `msgpack:"message,omitempty"`
	DurationNS int64  `msgpack:"duration_ns,omitempty"`
}

func (f Frame) validate() error {
	switch f.Type {
	case TypePlan, TypeDone:
		return nil
	case TypeStart, TypeMessageChunk:
		if f.Name == "" {
			return fmt.Errorf("%s frame without name", f.Type)
		}
		return nil
	case TypeOutcome:
		if f.Name == "" || f.Kind == "" {
			return errors.New("outcome frame without name or kind")
		}
		return nil
	default:
		return fmt.Errorf("unknown frame type %q", f.Type)
	}
}

// FrameErrorKind says whether the worker stream can still be read.
type FrameErrorKind int

const (
	// FrameErrorPartial: the worker died while writing a frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge: a length prefix beyond MaxPayloadSize, or a frame
	// the encoder could not split below it.
	FrameErrorTooLarge
	// FrameErrorDecode: a whole frame that is not a valid plan, start,
	// message_chunk, outcome or done. The next frame is still readable.
	FrameErrorDecode
)

// FrameError is a failure to write or read one frame.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the stream lost its framing. The supervisor stops
// reading and treats the run as ended without done.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError reports whether err is a *FrameError that IsFatal.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// Encoder writes frames. It is safe for concurrent use: the frames produced
// by one Encode call are written back to back, each with a single Write.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder creates a new frame encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes f to the stream. An outcome message longer than MaxChunkSize
// is sent as message_chunk frames followed by an outcome frame holding the
// last part, so messages of any length arrive whole.
func (e *Encoder) Encode(f Frame) error {
	if err := f.validate(); err != nil {
		return err
	}

	parts := split(f)
	bufs := make([][]byte, 0, len(parts))
	for _, part := range parts {
		buf, err := marshal(part)
		if err != nil {
			return err
		}
		bufs = append(bufs, buf)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, buf := range bufs {
		if _, err := e.w.Write(buf); err != nil {
			return fmt.Errorf("write %s frame: %w", parts[i].Type, err)
		}
	}
	return nil
}

// split cuts a long outcome message into message_chunk frames.
func split(f Frame) []Frame {
	if f.Type != TypeOutcome || len(f.Message) <= MaxChunkSize {
		return []Frame{f}
	}
	var frames []Frame
	msg := f.Message
	for len(msg) > MaxChunkSize {
		frames = append(frames, Frame{Type: TypeMessageChunk, Index: f.Index, Name: f.Name, Message: msg[:MaxChunkSize]})
		msg = msg[MaxChunkSize:]
	}
	f.Message = msg
	return append(frames, f)
}

// marshal renders f with its length prefix.
func marshal(f Frame) ([]byte, error) {
	payload, err := msgpack.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("%s frame payload size %d exceeds maximum %d", f.Type, len(payload), MaxPayloadSize),
		}
	}

	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}

// Decoder reads the worker stream on the supervisor side.
type Decoder struct {
	r io.Reader
}

// NewDecoder creates a new frame decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadFrame returns the msgpack payload of the next frame.
//
// io.EOF means the worker closed its end between frames; whether the run
// finished is decided by having seen done, not by the EOF. A prefix or
// payload cut short is FrameErrorPartial, and a prefix beyond MaxPayloadSize
// is FrameErrorTooLarge. Both are fatal.
func (d *Decoder) ReadFrame() ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "worker stream cut inside length prefix", Err: err}
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("frame payload size %d exceeds maximum %d", size, MaxPayloadSize),
		}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "worker stream cut inside frame payload", Err: err}
	}
	return payload, nil
}

// Decode reads and decodes the next frame.
func (d *Decoder) Decode() (Frame, error) {
	payload, err := d.ReadFrame()
	if err != nil {
		return Frame{}, err
	}
	return DecodeFrame(payload)
}

// DecodeFrame decodes a payload and checks it is a well-formed frame.
func DecodeFrame(payload []byte) (Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(payload, &f); err != nil {
		return Frame{}, &FrameError{Kind: FrameErrorDecode, Msg: "undecodable frame", Err: err}
	}
	if err := f.validate(); err != nil {
		return Frame{}, &FrameError{Kind: FrameErrorDecode, Msg: "invalid frame", Err: err}
	}
	return f, nil
}
