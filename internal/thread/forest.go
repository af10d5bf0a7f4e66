package thread

import "github.com/avivsinai/mail-thread/internal/mailseq"

// NodeID addresses a node in a Forest.
type NodeID int

// None is the NodeID of a missing link.
const None NodeID = -1

// Node is one message in the forest. Next links to the following sibling and
// Replies to the first child; both are None when absent.
type Node struct {
	Message mailseq.Message
	Next    NodeID
	Replies NodeID
}

// Forest is a set of reply trees stored in a node arena. The outermost
// sibling chain holds the roots.
type Forest struct {
	nodes     []Node
	lastReply []NodeID
	first     NodeID
	last      NodeID
	released  bool
}

func newForest() *Forest {
	return &Forest{first: None, last: None}
}

// Len returns the number of nodes.
func (f *Forest) Len() int {
	f.mustBeLive()
	return len(f.nodes)
}

// Node returns the node stored under id.
func (f *Forest) Node(id NodeID) Node {
	f.mustBeLive()
	return f.nodes[id]
}

// Roots returns the root nodes in insertion order.
func (f *Forest) Roots() []NodeID {
	f.mustBeLive()
	return f.chain(f.first)
}

// Children returns the replies to id in insertion order.
func (f *Forest) Children(id NodeID) []NodeID {
	f.mustBeLive()
	return f.chain(f.nodes[id].Replies)
}

func (f *Forest) chain(start NodeID) []NodeID {
	var out []NodeID
	for n := start; n != None; n = f.nodes[n].Next {
		out = append(out, n)
	}
	return out
}

// Find searches the forest for the node holding message id. The walk checks a
// node, then its following siblings, then its replies, so when ids collide the
// first node met in that order wins.
func (f *Forest) Find(id string) (NodeID, bool) {
	f.mustBeLive()
	if f.first == None {
		return None, false
	}
	stack := []NodeID{f.first}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := f.nodes[n]
		if node.Message.ID() == id {
			return n, true
		}
		if node.Replies != None {
			stack = append(stack, node.Replies)
		}
		if node.Next != None {
			stack = append(stack, node.Next)
		}
	}
	return None, false
}

// Walk visits every node depth first: a node, then its replies one level
// deeper, then its next sibling. Roots are at depth 0. A non-nil error from
// fn stops the walk and is returned.
func (f *Forest) Walk(fn func(id NodeID, depth int) error) error {
	f.mustBeLive()
	if f.first == None {
		return nil
	}
	return f.walk(f.first, true, fn)
}

// Subtree walks id and its descendants in Walk order, with depths relative
// to id. The siblings following id are not visited.
func (f *Forest) Subtree(id NodeID, fn func(id NodeID, depth int) error) error {
	f.mustBeLive()
	return f.walk(id, false, fn)
}

func (f *Forest) walk(start NodeID, siblings bool, fn func(id NodeID, depth int) error) error {
	type frame struct {
		id    NodeID
		depth int
	}
	stack := []frame{{start, 0}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := fn(fr.id, fr.depth); err != nil {
			return err
		}
		node := f.nodes[fr.id]
		if node.Next != None && (siblings || fr.id != start) {
			stack = append(stack, frame{node.Next, fr.depth})
		}
		if node.Replies != None {
			stack = append(stack, frame{node.Replies, fr.depth + 1})
		}
	}
	return nil
}

// Root returns the root of the tree containing id.
func (f *Forest) Root(id NodeID) NodeID {
	f.mustBeLive()
	parent := f.parents()
	for parent[id] != None {
		id = parent[id]
	}
	return id
}

// Depth returns the number of levels in the deepest tree; 0 when empty.
func (f *Forest) Depth() int {
	deepest := 0
	_ = f.Walk(func(_ NodeID, depth int) error {
		if depth+1 > deepest {
			deepest = depth + 1
		}
		return nil
	})
	return deepest
}

func (f *Forest) parents() []NodeID {
	parent := make([]NodeID, len(f.nodes))
	for i := range parent {
		parent[i] = None
	}
	for i, node := range f.nodes {
		for c := node.Replies; c != None; c = f.nodes[c].Next {
			parent[c] = NodeID(i)
		}
	}
	return parent
}

// Release drops every node. Messages are left to their owner. The forest must
// not be used afterwards.
func (f *Forest) Release() {
	f.mustBeLive()
	f.nodes = nil
	f.lastReply = nil
	f.first, f.last = None, None
	f.released = true
}

func (f *Forest) add(msg mailseq.Message) NodeID {
	f.nodes = append(f.nodes, Node{Message: msg, Next: None, Replies: None})
	f.lastReply = append(f.lastReply, None)
	return NodeID(len(f.nodes) - 1)
}

func (f *Forest) appendRoot(n NodeID) {
	if f.first == None {
		f.first = n
	} else {
		f.nodes[f.last].Next = n
	}
	f.last = n
}

func (f *Forest) appendReply(parent, n NodeID) {
	if tail := f.lastReply[parent]; tail != None {
		f.nodes[tail].Next = n
	} else {
		f.nodes[parent].Replies = n
	}
	f.lastReply[parent] = n
}

func (f *Forest) mustBeLive() {
	if f == nil {
		panic("thread: nil forest")
	}
	if f.released {
		panic("thread: forest used after Release")
	}
}
