// Package render prints thread forests and ordered message lists.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/avivsinai/mail-thread/internal/mailseq"
	"github.com/avivsinai/mail-thread/internal/thread"
)

// Summary is implemented by messages that carry display fields.
type Summary interface {
	From() string
	Subject() string
}

const stampLayout = "2006-01-02 15:04"

// Options control text output.
type Options struct {
	// Indent is the number of spaces per reply level.
	Indent int
	// Width truncates lines to this many runes; 0 disables truncation.
	Width int
	// Root limits output to the tree under this node; thread.None prints all.
	Root thread.NodeID
}

// Entry is the JSON shape of one message and its replies.
type Entry struct {
	ID        string    `json:"id"`
	From      string    `json:"from,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Created   time.Time `json:"created"`
	InReplyTo string    `json:"in_reply_to,omitempty"`
	Replies   []Entry   `json:"replies,omitempty"`
}

// Line formats one message as "<time>  <from>  <subject>  <id>".
func Line(msg mailseq.Message) string {
	from, subject := "", ""
	if s, ok := msg.(Summary); ok {
		from, subject = s.From(), s.Subject()
	}
	if subject == "" {
		subject = "(no subject)"
	}
	if from == "" {
		from = "-"
	}
	return fmt.Sprintf("%s  %s  %s  <%s>", msg.Time().UTC().Format(stampLayout), from, subject, msg.ID())
}

// Text writes the forest as an indented outline, one message per line.
func Text(w io.Writer, f *thread.Forest, opts Options) error {
	write := func(id thread.NodeID, depth int) error {
		line := strings.Repeat(" ", depth*opts.Indent) + Line(f.Node(id).Message)
		_, err := fmt.Fprintln(w, truncate(line, opts.Width))
		return err
	}
	if opts.Root != thread.None {
		return f.Subtree(opts.Root, write)
	}
	return f.Walk(write)
}

// List writes messages in the order given, one per line.
func List(w io.Writer, msgs []mailseq.Message, width int) error {
	for _, msg := range msgs {
		if _, err := fmt.Fprintln(w, truncate(Line(msg), width)); err != nil {
			return err
		}
	}
	return nil
}

// Entries converts the forest (or the tree under root) to nested entries.
func Entries(f *thread.Forest, root thread.NodeID) []Entry {
	var build func(ids []thread.NodeID) []Entry
	build = func(ids []thread.NodeID) []Entry {
		out := make([]Entry, 0, len(ids))
		for _, id := range ids {
			e := entryOf(f.Node(id).Message)
			if kids := f.Children(id); len(kids) > 0 {
				e.Replies = build(kids)
			}
			out = append(out, e)
		}
		return out
	}
	if root != thread.None {
		return build([]thread.NodeID{root})
	}
	return build(f.Roots())
}

func entryOf(msg mailseq.Message) Entry {
	e := Entry{ID: msg.ID(), Created: msg.Time().UTC()}
	if s, ok := msg.(Summary); ok {
		e.From, e.Subject = s.From(), s.Subject()
	}
	e.InReplyTo, _ = msg.RepliesTo()
	return e
}

// ListEntries converts messages to flat entries.
func ListEntries(msgs []mailseq.Message) []Entry {
	out := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, entryOf(msg))
	}
	return out
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TerminalWidth returns the column count of the terminal on fd, or 0 when fd
// is not a terminal.
func TerminalWidth(fd int) int {
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return 0
	}
	return width
}

func truncate(line string, width int) string {
	if width <= 0 {
		return line
	}
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}
	if width == 1 {
		return string(runes[:1])
	}
	return string(runes[:width-1]) + "…"
}
