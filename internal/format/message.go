package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Schema and version constants.
const (
	CurrentSchema  = 1
	CurrentVersion = 1
)

const (
	frontmatterStartLine = "---json"
	frontmatterStart     = frontmatterStartLine + "\n"
	frontmatterEnd       = "\n---\n"
	yamlStartLine        = "---"
)

// Sentinel errors for message parsing.
var (
	ErrMissingFrontmatterStart = errors.New("missing frontmatter start")
	ErrMissingFrontmatterEnd   = errors.New("missing frontmatter end")
	ErrMissingID               = errors.New("message has no id")
	ErrBadTimestamp            = errors.New("message has no valid created timestamp")
)

// Header is the frontmatter stored at the top of each message file.
type Header struct {
	Schema    int      `json:"schema" yaml:"schema"`
	ID        string   `json:"id" yaml:"id"`
	From      string   `json:"from" yaml:"from"`
	Subject   string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	Created   string   `json:"created" yaml:"created"`
	InReplyTo string   `json:"in_reply_to,omitempty" yaml:"in_reply_to,omitempty"`
	Refs      []string `json:"refs,omitempty" yaml:"refs,omitempty"`
}

// Message is the in-memory representation of a message file. Parsed
// messages are handed around by pointer and never modified.
type Message struct {
	Header Header
	Body   string

	created time.Time
}

// ID returns the message id.
func (m *Message) ID() string {
	return m.Header.ID
}

// RepliesTo returns the parent message id: in_reply_to when present,
// otherwise the last entry of refs.
func (m *Message) RepliesTo() (string, bool) {
	if id := strings.TrimSpace(m.Header.InReplyTo); id != "" {
		return id, true
	}
	for i := len(m.Header.Refs) - 1; i >= 0; i-- {
		if id := strings.TrimSpace(m.Header.Refs[i]); id != "" {
			return id, true
		}
	}
	return "", false
}

// Time returns the creation timestamp.
func (m *Message) Time() time.Time {
	return m.created
}

func (m *Message) From() string { return m.Header.From }

func (m *Message) Subject() string { return m.Header.Subject }

func (m Message) Marshal() ([]byte, error) {
	if m.Header.Schema == 0 {
		m.Header.Schema = CurrentSchema
	}
	if m.Header.Created == "" {
		m.Header.Created = time.Now().UTC().Format(time.RFC3339Nano)
	}
	b, err := json.MarshalIndent(m.Header, "", "  ")
	if err != nil {
		return nil, err
	}
	body := m.Body
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	out := make([]byte, 0, len(frontmatterStart)+len(b)+len(frontmatterEnd)+len(body))
	out = append(out, frontmatterStart...)
	out = append(out, b...)
	out = append(out, frontmatterEnd...)
	out = append(out, body...)
	return out, nil
}

// ParseMessage parses a message file with JSON (---json) or YAML (---)
// frontmatter and validates its id and timestamp.
func ParseMessage(data []byte) (*Message, error) {
	header, body, err := splitHeader(data)
	if err != nil {
		return nil, err
	}
	msg := &Message{Header: header, Body: string(body)}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func ReadMessageFile(path string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMessage(data)
}

func (m *Message) validate() error {
	if strings.TrimSpace(m.Header.ID) == "" {
		return ErrMissingID
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(m.Header.Created))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadTimestamp, m.Header.Created)
	}
	m.created = ts
	return nil
}

func splitHeader(data []byte) (Header, []byte, error) {
	var header Header
	if bytes.HasPrefix(data, []byte(frontmatterStart)) {
		raw, body, err := splitFrontmatter(data)
		if err != nil {
			return Header{}, nil, err
		}
		if err := json.Unmarshal(raw, &header); err != nil {
			return Header{}, nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		return header, body, nil
	}
	raw, body, err := splitYAMLFrontmatter(data)
	if err != nil {
		return Header{}, nil, err
	}
	if err := yaml.Unmarshal(raw, &header); err != nil {
		return Header{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return header, body, nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	payload := data[len(frontmatterStart):]
	dec := json.NewDecoder(bytes.NewReader(payload))
	var header json.RawMessage
	if err := dec.Decode(&header); err != nil {
		return nil, nil, fmt.Errorf("parse frontmatter json: %w", err)
	}
	rest := payload[dec.InputOffset():]
	rest = bytes.TrimLeft(rest, " \t\r\n")
	if !bytes.HasPrefix(rest, []byte("---\n")) {
		return nil, nil, ErrMissingFrontmatterEnd
	}
	body := rest[len("---\n"):]
	return header, body, nil
}

// splitYAMLFrontmatter handles the common markdown layout:
//
//	---
//	id: ...
//	---
//	body
func splitYAMLFrontmatter(data []byte) ([]byte, []byte, error) {
	first, rest, ok := bytes.Cut(data, []byte("\n"))
	if !ok || string(bytes.TrimRight(first, "\r")) != yamlStartLine {
		return nil, nil, ErrMissingFrontmatterStart
	}
	var header []byte
	for len(rest) > 0 {
		line, next, _ := bytes.Cut(rest, []byte("\n"))
		if string(bytes.TrimRight(line, "\r")) == yamlStartLine {
			return header, next, nil
		}
		header = append(header, line...)
		header = append(header, '\n')
		rest = next
	}
	return nil, nil, ErrMissingFrontmatterEnd
}
