package ubx

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Port is the byte transport the poll engine drives. go.bug.st/serial ports
// satisfy it; tests supply an in-memory fake. The engine assumes exclusive
// use of the port for the duration of one Poll call, and leaves it usable
// by the caller regardless of outcome.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
}

// PollConfig tunes the request/response cycle.
type PollConfig struct {
	// MaxRetries bounds the number of send+read attempts per poll.
	MaxRetries int `json:"maxRetries"`
	// AttemptTimeout is the per-read timeout. The engine itself does not
	// enforce it; the serial provider pushes it down to the port so each
	// Read blocks for at most this long.
	AttemptTimeout time.Duration `json:"attemptTimeout"`
	// InterAttemptDelay is the fixed pause between writing a request and
	// reading the response, giving the receiver time to answer. Too short
	// wastes attempts on empty reads; too long slows failure detection.
	InterAttemptDelay time.Duration `json:"interAttemptDelay"`
}

const (
	defaultMaxRetries        = 10
	defaultAttemptTimeout    = 2 * time.Second
	defaultInterAttemptDelay = 500 * time.Millisecond

	// readBufSize holds the largest response we expect in one read. A full
	// NAV-SAT frame with ~40 tracked satellites is still well under this.
	readBufSize = 1024
)

// ErrNoResponse is returned by Poll after the attempt bound is exhausted
// without a matching response.
var ErrNoResponse = errors.New("ubx: no response from receiver")

// WithDefaults fills zero fields, so a zero PollConfig is usable.
func (c PollConfig) WithDefaults() PollConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = defaultAttemptTimeout
	}
	if c.InterAttemptDelay <= 0 {
		c.InterAttemptDelay = defaultInterAttemptDelay
	}
	return c
}

// Poll sends a UBX request and waits for the matching response.
//
// Each attempt writes the encoded frame, pauses for InterAttemptDelay, then
// performs a single read and tries to decode it. Only a valid frame whose
// class and id equal the request is accepted; an invalid buffer and a
// well-formed but unsolicited message are treated identically, and a write
// or read error consumes the attempt rather than aborting. After MaxRetries
// failed attempts Poll returns ErrNoResponse with the port untouched, so the
// caller can reuse or close it.
func Poll(port Port, class, id byte, payload []byte, cfg PollConfig) (Message, error) {
	cfg = cfg.WithDefaults()

	frame, err := EncodeFrame(class, id, payload)
	if err != nil {
		return Message{}, err
	}

	buf := make([]byte, readBufSize)
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if _, err := port.Write(frame); err != nil {
			log.Printf("[ubx] poll 0x%02X/0x%02X attempt %d/%d: write failed: %v",
				class, id, attempt, cfg.MaxRetries, err)
			continue
		}
		// Serial ports buffer writes; push the request onto the wire before
		// waiting for the answer.
		if d, ok := port.(interface{ Drain() error }); ok {
			d.Drain()
		}

		// Let the receiver respond before the blocking read.
		time.Sleep(cfg.InterAttemptDelay)

		n, err := port.Read(buf)
		if err != nil {
			log.Printf("[ubx] poll 0x%02X/0x%02X attempt %d/%d: read failed: %v",
				class, id, attempt, cfg.MaxRetries, err)
			continue
		}

		msg, ok := DecodeFrame(buf[:n])
		if !ok {
			continue // no valid frame in this read
		}
		if msg.Class == class && msg.ID == id {
			return msg, nil
		}
		// Unsolicited message for something else: same as no response.
	}

	return Message{}, fmt.Errorf("ubx: poll 0x%02X/0x%02X after %d attempts: %w",
		class, id, cfg.MaxRetries, ErrNoResponse)
}
