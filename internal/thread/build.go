package thread

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/avivsinai/mail-thread/internal/mailseq"
)

// Sentinel errors returned by Build.
var (
	ErrUnordered = errors.New("message sequence is not ordered by timestamp")
	ErrOrphan    = errors.New("reply to unknown message")
)

// Index resolves message ids to forest nodes. It is fed every node as the
// node is created, so it always mirrors the forest being built.
type Index interface {
	Insert(id string, node NodeID)
	Find(id string) (NodeID, bool)
}

// OrphanPolicy decides where a reply goes when its parent is not in the
// forest.
type OrphanPolicy int

const (
	// OrphanRoot places unresolved replies at the root level.
	OrphanRoot OrphanPolicy = iota
	// OrphanStrict fails the build on the first unresolved reply.
	OrphanStrict
)

// ParseOrphanPolicy maps "root" or "strict" to a policy. The empty string
// selects OrphanRoot.
func ParseOrphanPolicy(raw string) (OrphanPolicy, error) {
	switch raw {
	case "", "root":
		return OrphanRoot, nil
	case "strict":
		return OrphanStrict, nil
	default:
		return OrphanRoot, fmt.Errorf("unknown orphan policy %q (want root or strict)", raw)
	}
}

func (p OrphanPolicy) String() string {
	if p == OrphanStrict {
		return "strict"
	}
	return "root"
}

type options struct {
	index   Index
	orphans OrphanPolicy
	logger  *slog.Logger
}

// Option configures Build.
type Option func(*options)

// WithIndex resolves parent references through idx instead of walking the
// forest. idx must be empty.
func WithIndex(idx Index) Option {
	return func(o *options) {
		o.index = idx
	}
}

// WithOrphanPolicy sets how unresolved replies are handled.
func WithOrphanPolicy(p OrphanPolicy) Option {
	return func(o *options) {
		o.orphans = p
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Build scans seq once from the start and returns the reply forest. seq must
// already be ordered by timestamp; Build checks that but never sorts.
func Build(seq *mailseq.Sequence, opts ...Option) (*Forest, error) {
	if seq == nil {
		panic("thread: nil sequence")
	}
	o := options{orphans: OrphanRoot, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	if !seq.IsOrdered() {
		return nil, ErrUnordered
	}

	f := newForest()
	orphans := 0
	seq.StartScan()
	for !seq.ScanComplete() {
		msg, _ := seq.Next()
		parentID, isReply := msg.RepliesTo()
		if !isReply {
			f.appendRoot(f.track(msg, o.index))
			continue
		}
		parent, found := f.resolve(parentID, o.index)
		if found {
			f.appendReply(parent, f.track(msg, o.index))
			continue
		}
		if o.orphans == OrphanStrict {
			return nil, fmt.Errorf("%w: %s replies to %s", ErrOrphan, msg.ID(), parentID)
		}
		orphans++
		o.logger.Debug("orphan reply placed at root", "id", msg.ID(), "replies_to", parentID)
		f.appendRoot(f.track(msg, o.index))
	}
	o.logger.Debug("thread forest built", "messages", f.Len(), "roots", len(f.Roots()), "orphans", orphans)
	return f, nil
}

// track creates the node for msg and records it in idx when one is set.
func (f *Forest) track(msg mailseq.Message, idx Index) NodeID {
	n := f.add(msg)
	if idx != nil {
		idx.Insert(msg.ID(), n)
	}
	return n
}

func (f *Forest) resolve(id string, idx Index) (NodeID, bool) {
	if idx != nil {
		return idx.Find(id)
	}
	return f.Find(id)
}
