package mailseq

import "time"

// Message is the view of a mail message the sequence and the thread builder
// rely on. Implementations must be immutable while referenced.
type Message interface {
	ID() string
	// RepliesTo returns the id of the parent message, if any.
	RepliesTo() (string, bool)
	Time() time.Time
}

const none = -1

type node struct {
	msg  Message
	next int
}

// Sequence is a timestamp-ordered chain of message handles. Nodes are held in
// an arena and linked by index. The sequence never owns the messages.
type Sequence struct {
	nodes    []node
	head     int
	tail     int
	cur      int
	released bool
}

// New returns an empty sequence.
func New() *Sequence {
	return &Sequence{head: none, tail: none, cur: none}
}

// Len returns the number of messages held.
func (s *Sequence) Len() int {
	s.mustBeLive()
	return len(s.nodes)
}

// InsertOrdered inserts msg so the sequence stays sorted by ascending
// timestamp. A message with the same timestamp as existing ones lands before
// the first element that is not earlier than it. Any scan in progress is
// reset to the head.
func (s *Sequence) InsertOrdered(msg Message) {
	s.mustBeLive()
	if msg == nil {
		panic("mailseq: nil message")
	}
	at := s.alloc(msg)
	defer s.StartScan()

	if s.head == none {
		s.head, s.tail = at, at
		return
	}
	t := msg.Time()

	if s.head == s.tail {
		if t.Before(s.nodes[s.head].msg.Time()) {
			s.nodes[at].next = s.head
			s.head = at
			return
		}
		s.nodes[s.tail].next = at
		s.tail = at
		return
	}

	if t.Before(s.nodes[s.head].msg.Time()) {
		s.nodes[at].next = s.head
		s.head = at
		return
	}
	if t.After(s.nodes[s.tail].msg.Time()) {
		s.nodes[s.tail].next = at
		s.tail = at
		return
	}

	prev := none
	for i := s.head; i != none; prev, i = i, s.nodes[i].next {
		if s.nodes[i].msg.Time().Before(t) {
			continue
		}
		s.nodes[at].next = i
		if prev == none {
			s.head = at
		} else {
			s.nodes[prev].next = at
		}
		return
	}

	// Unreachable while the tail check above holds; append anyway.
	s.nodes[s.tail].next = at
	s.tail = at
}

func (s *Sequence) alloc(msg Message) int {
	s.nodes = append(s.nodes, node{msg: msg, next: none})
	return len(s.nodes) - 1
}

// IsOrdered reports whether a forward walk sees non-decreasing timestamps.
func (s *Sequence) IsOrdered() bool {
	s.mustBeLive()
	var prev time.Time
	for i, first := s.head, true; i != none; i, first = s.nodes[i].next, false {
		t := s.nodes[i].msg.Time()
		if !first && prev.After(t) {
			return false
		}
		prev = t
	}
	return true
}

// StartScan positions the cursor on the first message.
func (s *Sequence) StartScan() {
	s.mustBeLive()
	s.cur = s.head
}

// Next returns the message under the cursor and advances. Once the scan is
// complete it keeps returning nil, false.
func (s *Sequence) Next() (Message, bool) {
	s.mustBeLive()
	if s.cur == none {
		return nil, false
	}
	msg := s.nodes[s.cur].msg
	s.cur = s.nodes[s.cur].next
	return msg, true
}

// ScanComplete reports whether the cursor has passed the last message.
func (s *Sequence) ScanComplete() bool {
	s.mustBeLive()
	return s.cur == none
}

// Messages returns the messages in order without touching the cursor.
func (s *Sequence) Messages() []Message {
	s.mustBeLive()
	out := make([]Message, 0, len(s.nodes))
	for i := s.head; i != none; i = s.nodes[i].next {
		out = append(out, s.nodes[i].msg)
	}
	return out
}

// Release drops every node. Messages are left to their owner. The sequence
// must not be used afterwards.
func (s *Sequence) Release() {
	s.mustBeLive()
	s.nodes = nil
	s.head, s.tail, s.cur = none, none, none
	s.released = true
}

func (s *Sequence) mustBeLive() {
	if s == nil {
		panic("mailseq: nil sequence")
	}
	if s.released {
		panic("mailseq: sequence used after Release")
	}
}
