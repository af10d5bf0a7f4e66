package thread

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestForestFindPrefersSiblingsOverReplies(t *testing.T) {
	// Two nodes share the id "D"; the walk reaches R2 before R1's replies.
	f := buildBoth(t,
		msg("R1", 1, ""),
		msg("R2", 2, ""),
		msg("D", 3, "R1"),
	)
	f2, err := Build(sequenceOf(
		msg("R1", 1, ""),
		msg("R2", 2, ""),
		msg("D", 3, "R1"),
		msg("D", 4, "R2"),
		msg("E", 5, "D"),
	))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := outline(f2); got != "R1(D),R2(D(E))" {
		t.Fatalf("forest = %q", got)
	}
	n, ok := f2.Find("D")
	if !ok {
		t.Fatalf("expected to find D")
	}
	if f2.Root(n) != f2.Roots()[1] {
		t.Fatalf("Find picked the wrong duplicate")
	}
	if _, ok := f.Find("nope"); ok {
		t.Fatalf("expected miss")
	}
}

func TestForestFindEmpty(t *testing.T) {
	f, err := Build(sequenceOf())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := f.Find("A"); ok {
		t.Fatalf("expected miss on empty forest")
	}
	if len(f.Roots()) != 0 || f.Depth() != 0 {
		t.Fatalf("expected empty forest")
	}
}

func walkLines(f *Forest, walk func(fn func(NodeID, int) error) error) string {
	var lines []string
	_ = walk(func(id NodeID, depth int) error {
		lines = append(lines, strings.Repeat(".", depth)+f.Node(id).Message.ID())
		return nil
	})
	return strings.Join(lines, " ")
}

func TestForestWalk(t *testing.T) {
	f := buildBoth(t,
		msg("A", 1, ""), msg("X", 2, ""), msg("A1", 3, "A"), msg("X1", 4, "X"),
		msg("A2", 5, "A"), msg("A1a", 6, "A1"),
	)
	if got := walkLines(f, f.Walk); got != "A .A1 ..A1a .A2 X .X1" {
		t.Fatalf("walk = %q", got)
	}
	if f.Depth() != 3 {
		t.Fatalf("Depth = %d, want 3", f.Depth())
	}

	a1, _ := f.Find("A1")
	sub := func(fn func(NodeID, int) error) error { return f.Subtree(a1, fn) }
	if got := walkLines(f, sub); got != "A1 .A1a" {
		t.Fatalf("subtree = %q", got)
	}
	if root := f.Root(a1); f.Node(root).Message.ID() != "A" {
		t.Fatalf("Root(A1) = %s", f.Node(root).Message.ID())
	}
}

func TestForestWalkStops(t *testing.T) {
	f := buildBoth(t, msg("A", 1, ""), msg("B", 2, ""), msg("C", 3, ""))
	stop := errors.New("stop")
	seen := 0
	err := f.Walk(func(id NodeID, depth int) error {
		seen++
		if f.Node(id).Message.ID() == "B" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || seen != 2 {
		t.Fatalf("walk err = %v after %d nodes", err, seen)
	}
}

func TestForestDeepChain(t *testing.T) {
	msgs := []*testMsg{msg("m0", 0, "")}
	for i := 1; i < 2000; i++ {
		msgs = append(msgs, msg(fmt.Sprintf("m%d", i), i, fmt.Sprintf("m%d", i-1)))
	}
	f, err := Build(sequenceOf(msgs...))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if f.Depth() != 2000 {
		t.Fatalf("Depth = %d, want 2000", f.Depth())
	}
}

func TestForestReleasePanics(t *testing.T) {
	f := buildBoth(t, msg("A", 1, ""))
	f.Release()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic after Release")
		}
	}()
	f.Roots()
}
