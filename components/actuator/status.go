package actuator

import (
	"encoding/binary"
	"fmt"

	"github.com/cubium/spacore/spa"
)

// StatusLength is the encoded size of a Status.
const StatusLength = 16

// Status is the state an actuator reports to its subscribers.
type Status struct {
	Decision  int32
	Switches  uint32
	Decisions uint64
}

// MarshalBinary encodes the status in network byte order.
func (s Status) MarshalBinary() ([]byte, error) {
	buf := make([]byte, StatusLength)
	binary.BigEndian.PutUint32(buf[0:], uint32(s.Decision))
	binary.BigEndian.PutUint32(buf[4:], s.Switches)
	binary.BigEndian.PutUint64(buf[8:], s.Decisions)

	return buf, nil
}

// UnmarshalBinary decodes a status produced by MarshalBinary.
func (s *Status) UnmarshalBinary(buf []byte) error {
	if len(buf) != StatusLength {
		return fmt.Errorf("status of %d bytes: %w", len(buf), spa.ErrMalformedMsg)
	}

	s.Decision = int32(binary.BigEndian.Uint32(buf[0:]))
	s.Switches = binary.BigEndian.Uint32(buf[4:])
	s.Decisions = binary.BigEndian.Uint64(buf[8:])

	return nil
}
