package protocol

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	FieldSep  = ","
	RecordSep = ";"
)

var ErrNoCommand = errors.New("frame has no command separator")

type Message struct {
	Command string
	Payload string
}

func (m Message) String() string { return Encode(m.Command, m.Payload) }

// Encode builds a COMMAND:payload frame. Payload-less keywords are sent bare.
func Encode(command, payload string) string {
	if payload == "" && bareCommands[command] {
		return command
	}
	return command + ":" + payload
}

// EncodeFields joins fields with ',' before encoding.
func EncodeFields(command string, fields ...string) string {
	return Encode(command, strings.Join(fields, FieldSep))
}

// Decode splits on the first ':'.
func Decode(raw string) (Message, error) {
	raw = strings.TrimRight(raw, "\r\n")
	cmd, payload, ok := strings.Cut(raw, ":")
	if !ok {
		if bareCommands[raw] {
			return Message{Command: raw}, nil
		}
		return Message{}, ErrNoCommand
	}
	if cmd == "" {
		return Message{}, ErrNoCommand
	}
	return Message{Command: cmd, Payload: payload}, nil
}

// Records splits a payload on ';'. An empty payload has no records.
func Records(payload string) []string {
	if payload == "" {
		return nil
	}
	return strings.Split(payload, RecordSep)
}

// Fields is one comma-separated record. Each accessor parses its own field
// so one malformed value never spoils the rest.
type Fields []string

func Split(record string) Fields {
	if record == "" {
		return nil
	}
	return Fields(strings.Split(record, FieldSep))
}

func (f Fields) Len() int { return len(f) }

func (f Fields) String(i int) (string, bool) {
	if i < 0 || i >= len(f) {
		return "", false
	}
	return strings.TrimSpace(f[i]), true
}

func (f Fields) StringOr(i int, def string) string {
	s, ok := f.String(i)
	if !ok || s == "" {
		return def
	}
	return s
}

func (f Fields) Int(i int) (int, bool) {
	s, ok := f.String(i)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// positions are sometimes sent as floats
		v, ok := finite(s)
		if !ok {
			return 0, false
		}
		return int(v), true
	}
	return n, true
}

func (f Fields) IntOr(i, def int) int {
	if n, ok := f.Int(i); ok {
		return n
	}
	return def
}

func (f Fields) Float(i int) (float64, bool) {
	s, ok := f.String(i)
	if !ok {
		return 0, false
	}
	return finite(s)
}

func finite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (f Fields) FloatOr(i int, def float64) float64 {
	if v, ok := f.Float(i); ok {
		return v
	}
	return def
}

func (f Fields) Bool(i int) (bool, bool) {
	s, ok := f.String(i)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}

// Itoa and Ftoa keep number formatting consistent across builders.
func Itoa(n int) string { return strconv.Itoa(n) }

func Ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Clean strips delimiter characters from a free-text field value.
func Clean(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', ';', ':':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
