package message

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Kind - discriminates record shapes by the "type" field.
type Kind string

const (
	// KindChat - chat line, client -> server and server -> all clients.
	KindChat Kind = "chat"
	// KindInfo - server notice (join, leave).
	KindInfo Kind = "info"
	// KindSyncRequest - client asks for the server time.
	KindSyncRequest Kind = "sync_request"
	// KindSyncReply - server time, sent to the requesting connection only.
	KindSyncReply Kind = "sync_reply"
)

func (k Kind) known() bool {
	switch k {
	case KindChat, KindInfo, KindSyncRequest, KindSyncReply:
		return true
	}
	return false
}

// Message - one decoded record. Timestamps are Unix seconds, nil when absent.
type Message struct {
	Type       Kind
	From       string
	Text       string
	ClientTS   *float64
	ServerTS   *float64
	ServerTime *float64
}

// Chat - builds chat message as produced by the client.
func Chat(from, text string, clientTS *float64) Message {
	return Message{Type: KindChat, From: from, Text: text, ClientTS: clientTS}
}

// Info - builds server notice.
func Info(text string) Message {
	return Message{Type: KindInfo, Text: text}
}

// SyncRequest - builds sync request.
func SyncRequest() Message {
	return Message{Type: KindSyncRequest}
}

// SyncReply - builds sync reply carrying the server time.
func SyncReply(serverTime float64) Message {
	return Message{Type: KindSyncReply, ServerTime: &serverTime}
}

// Float - returns pointer to v, handy for optional timestamps.
func Float(v float64) *float64 {
	return &v
}

var (
	// ErrUnknownKind - record has no type or the type is not supported.
	ErrUnknownKind = errors.New("message: unknown kind")
	// ErrMissingField - record lacks a field required by its kind.
	ErrMissingField = errors.New("message: missing required field")
	// ErrInvalidEncoding - record is not valid UTF-8.
	ErrInvalidEncoding = errors.New("message: invalid encoding")
)

// DecodeError - non-fatal failure to decode single record, the record should be dropped.
type DecodeError struct {
	Line []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return "decode record failed: " + e.Err.Error()
}

// Unwrap - supports errors.Is for sentinel causes.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError - reports whether err means a malformed record rather than a transport failure.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

type record struct {
	Type       string          `json:"type"`
	From       *string         `json:"from,omitempty"`
	Text       *string         `json:"text,omitempty"`
	ClientTS   *float64        `json:"client_ts,omitempty"`
	ServerTS   *float64        `json:"server_ts,omitempty"`
	ServerTime json.RawMessage `json:"server_time,omitempty"`
}

// Encode - serializes message into one newline-terminated record.
// Only fields which belong to the message kind are written.
func Encode(m Message) ([]byte, error) {
	if !m.Type.known() {
		return nil, errors.Wrapf(ErrUnknownKind, "encode %q failed", m.Type)
	}
	r := record{Type: string(m.Type)}
	switch m.Type {
	case KindChat:
		r.From, r.Text = &m.From, &m.Text
		r.ClientTS, r.ServerTS = m.ClientTS, m.ServerTS
	case KindInfo:
		r.Text = &m.Text
	case KindSyncReply:
		if m.ServerTime != nil {
			raw, err := json.Marshal(*m.ServerTime)
			if err != nil {
				return nil, errors.Wrap(err, "marshal server time failed")
			}
			r.ServerTime = raw
		}
	}
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "marshal record failed")
	}
	return append(buf, '\n'), nil
}

// Decode - parses single record, line terminator is optional.
// Returned error is always *DecodeError.
func Decode(line []byte) (Message, error) {
	line = bytes.TrimSpace(line)
	fail := func(err error) (Message, error) {
		return Message{}, &DecodeError{Line: line, Err: err}
	}
	// json replaces broken sequences with U+FFFD instead of failing
	if !utf8.Valid(line) {
		return fail(ErrInvalidEncoding)
	}
	var r record
	if err := json.Unmarshal(line, &r); err != nil {
		return fail(err)
	}
	m := Message{Type: Kind(r.Type)}
	switch m.Type {
	case KindChat:
		if r.From == nil || r.Text == nil {
			return fail(ErrMissingField)
		}
		m.From, m.Text = *r.From, *r.Text
		m.ClientTS, m.ServerTS = r.ClientTS, r.ServerTS
	case KindInfo:
		if r.Text == nil {
			return fail(ErrMissingField)
		}
		m.Text = *r.Text
	case KindSyncRequest:
	case KindSyncReply:
		// non-numeric server_time is the receiver's business, so keep the record
		var v *float64
		if len(r.ServerTime) > 0 && json.Unmarshal(r.ServerTime, &v) == nil {
			m.ServerTime = v
		}
	default:
		return fail(ErrUnknownKind)
	}
	return m, nil
}

// Decoder - reads records from byte stream, one per line.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder - builds Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next - returns next record. Blank lines are skipped.
// The error is *DecodeError for a malformed record, the stream may be read further then.
// Any other error, io.EOF included, ends the stream; unterminated trailing bytes are discarded.
func (d *Decoder) Next() (Message, error) {
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			return Message{}, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return Decode(line)
	}
}
