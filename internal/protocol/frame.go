package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const MaxFrameLen = 1<<16 - 1

var (
	ErrFrameTooLarge = errors.New("frame exceeds 65535 bytes")
	ErrInvalidUTF8   = errors.New("frame is not valid utf-8")
)

// WriteFrame writes a 2-byte big-endian length followed by the UTF-8 body.
// Callers sharing w must serialize calls.
func WriteFrame(w io.Writer, msg string) error {
	if len(msg) > MaxFrameLen {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(buf, uint16(len(msg)))
	copy(buf[2:], msg)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame blocks until one complete frame is read.
func ReadFrame(r io.Reader) (string, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(hdr[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", fmt.Errorf("read frame body: %w", err)
	}
	if !utf8.Valid(body) {
		return "", ErrInvalidUTF8
	}
	return string(body), nil
}
