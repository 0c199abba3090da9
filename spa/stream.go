package spa

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultMaxCourierLength bounds the payload a MsgReader accepts after a
// Courier header.
const DefaultMaxCourierLength = 16 << 20

// Inbound is one logical message handed from a transport to a component.
// Payload is set only when Msg is a *Courier and holds exactly ByteLength
// bytes.
type Inbound struct {
	Msg     Msg
	Payload []byte
}

// MsgWriter writes frames to an ordered byte stream.
type MsgWriter struct {
	lock sync.Mutex
	w    io.Writer
}

// NewMsgWriter creates a MsgWriter on top of w.
func NewMsgWriter(w io.Writer) *MsgWriter {
	return &MsgWriter{w: w}
}

// WriteMsg writes one fixed-size frame. Couriers must be written with
// WriteCourier so that their body follows the header.
func (w *MsgWriter) WriteMsg(m Msg) error {
	if _, ok := m.(*Courier); ok {
		return fmt.Errorf("courier written without payload: %w",
			ErrCourierLength)
	}

	frame, err := MarshalMsg(m)
	if err != nil {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	_, err = w.w.Write(frame)

	return err
}

// WriteCourier writes a Courier header immediately followed by its payload.
// No other frame written through w can land between the two.
func (w *MsgWriter) WriteCourier(c *Courier, payload []byte) error {
	if uint64(len(payload)) != uint64(c.ByteLength) {
		return fmt.Errorf("courier announces %d bytes, payload has %d: %w",
			c.ByteLength, len(payload), ErrCourierLength)
	}

	frame, err := MarshalMsg(c)
	if err != nil {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if _, err := w.w.Write(frame); err != nil {
		return err
	}

	_, err = w.w.Write(payload)

	return err
}

// WriteInbound forwards a message received from another stream.
func (w *MsgWriter) WriteInbound(in Inbound) error {
	if c, ok := in.Msg.(*Courier); ok {
		return w.WriteCourier(c, in.Payload)
	}

	return w.WriteMsg(in.Msg)
}

// MsgReader reads frames from an ordered byte stream.
type MsgReader struct {
	r                io.Reader
	maxCourierLength uint32
}

// NewMsgReader creates a MsgReader on top of r.
func NewMsgReader(r io.Reader) *MsgReader {
	return &MsgReader{
		r:                r,
		maxCourierLength: DefaultMaxCourierLength,
	}
}

// WithMaxCourierLength changes the largest courier payload accepted.
func (r *MsgReader) WithMaxCourierLength(n uint32) *MsgReader {
	r.maxCourierLength = n
	return r
}

// ReadMsg reads the next message. A clean end of stream between two frames
// returns io.EOF. Any other failure is a *FramingError and the stream must
// not be read again.
func (r *MsgReader) ReadMsg() (Inbound, error) {
	var op [1]byte

	_, err := io.ReadFull(r.r, op[:])
	if errors.Is(err, io.EOF) {
		return Inbound{}, io.EOF
	}

	if err != nil {
		return Inbound{}, &FramingError{Op: "read opcode", Err: err}
	}

	size, ok := FrameSize(Opcode(op[0]))
	if !ok {
		return Inbound{}, &FramingError{
			Op:  "read opcode",
			Err: fmt.Errorf("opcode 0x%02x: %w", op[0], ErrUnknownOpcode),
		}
	}

	frame := make([]byte, size)
	frame[0] = op[0]

	if _, err := io.ReadFull(r.r, frame[1:]); err != nil {
		return Inbound{}, &FramingError{Op: "read frame", Err: noEOF(err)}
	}

	msg, err := UnmarshalMsg(frame)
	if err != nil {
		return Inbound{}, &FramingError{Op: "decode frame", Err: err}
	}

	courier, ok := msg.(*Courier)
	if !ok {
		return Inbound{Msg: msg}, nil
	}

	if courier.ByteLength > r.maxCourierLength {
		return Inbound{}, &FramingError{
			Op: "read courier body",
			Err: fmt.Errorf("%d bytes exceeds limit %d: %w",
				courier.ByteLength, r.maxCourierLength, ErrCourierLength),
		}
	}

	payload := make([]byte, courier.ByteLength)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return Inbound{}, &FramingError{
			Op:  "read courier body",
			Err: noEOF(err),
		}
	}

	return Inbound{Msg: courier, Payload: payload}, nil
}

// noEOF turns a bare EOF inside a frame into io.ErrUnexpectedEOF.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}
