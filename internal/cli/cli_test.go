package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avivsinai/mail-thread/internal/fsq"
	"github.com/avivsinai/mail-thread/internal/render"
)

// captureOutput redirects stdout and stderr to buffers for the test.
func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut
	t.Cleanup(func() { stdout, stderr = oldOut, oldErr })
	return &out, &errOut
}

func mustRun(t *testing.T, args ...string) {
	t.Helper()
	if err := Run(args); err != nil {
		t.Fatalf("Run(%v): %v", args, err)
	}
}

// seedMailbox creates a root with two threads and one orphan reply.
func seedMailbox(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "mail")
	mustRun(t, "init", "--root", root)
	sends := [][]string{
		{"--id", "a", "--from", "jas", "--subject", "Assignment", "--created", "2019-02-01T09:00:00Z"},
		{"--id", "c", "--from", "jas", "--subject", "Re: Assignment", "--reply-to", "a", "--created", "2019-02-01T09:02:00Z"},
		{"--id", "b", "--from", "andrew", "--subject", "Re: Assignment", "--reply-to", "a", "--created", "2019-02-01T09:01:00Z"},
		{"--id", "d", "--from", "ann", "--subject", "Lab", "--created", "2019-02-01T09:03:00Z"},
		{"--id", "e", "--from", "ann", "--subject", "Re: lost", "--reply-to", "missing", "--created", "2019-02-01T09:04:00Z"},
		{"--id", "b1", "--from", "jas", "--subject", "Re: Re: Assignment", "--reply-to", "b", "--created", "2019-02-01T09:05:00Z"},
	}
	for _, s := range sends {
		mustRun(t, append([]string{"send", "--root", root, "--body", "text"}, s...)...)
	}
	return root
}

func TestThreadText(t *testing.T) {
	out, _ := captureOutput(t)
	root := seedMailbox(t)
	out.Reset()

	mustRun(t, "thread", "--root", root, "--width", "0", "--indent", "2")
	want := "" +
		"2019-02-01 09:00  jas  Assignment  <a>\n" +
		"  2019-02-01 09:01  andrew  Re: Assignment  <b>\n" +
		"    2019-02-01 09:05  jas  Re: Re: Assignment  <b1>\n" +
		"  2019-02-01 09:02  jas  Re: Assignment  <c>\n" +
		"2019-02-01 09:03  ann  Lab  <d>\n" +
		"2019-02-01 09:04  ann  Re: lost  <e>\n"
	if out.String() != want {
		t.Fatalf("thread output =\n%s\nwant\n%s", out.String(), want)
	}
}

func TestThreadJSONWithIndexAndID(t *testing.T) {
	out, _ := captureOutput(t)
	root := seedMailbox(t)
	out.Reset()

	mustRun(t, "thread", "--root", root, "--json", "--index", "--id", "b1")
	var entries []render.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Fatalf("expected only thread a, got %+v", entries)
	}
	if len(entries[0].Replies) != 2 || entries[0].Replies[0].ID != "b" || entries[0].Replies[1].ID != "c" {
		t.Fatalf("unexpected replies: %+v", entries[0].Replies)
	}
}

func TestThreadUnknownID(t *testing.T) {
	captureOutput(t)
	root := seedMailbox(t)
	err := Run([]string{"thread", "--root", root, "--id", "zzz"})
	if GetExitCode(err) != ExitNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestThreadStrictOrphans(t *testing.T) {
	captureOutput(t)
	root := seedMailbox(t)
	err := Run([]string{"thread", "--root", root, "--strict-orphans"})
	if GetExitCode(err) != ExitThread {
		t.Fatalf("expected thread error, got %v", err)
	}
	if !strings.Contains(err.Error(), "e replies to missing") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestThreadStrictFromConfig(t *testing.T) {
	captureOutput(t)
	root := filepath.Join(t.TempDir(), "mail")
	mustRun(t, "init", "--root", root, "--orphans", "strict")
	mustRun(t, "send", "--root", root, "--id", "x", "--from", "jas", "--reply-to", "nope", "--body", "hi")
	if err := Run([]string{"thread", "--root", root}); GetExitCode(err) != ExitThread {
		t.Fatalf("expected strict policy from config, got %v", err)
	}
}

func TestThreadMarkSeen(t *testing.T) {
	captureOutput(t)
	root := seedMailbox(t)
	mustRun(t, "thread", "--root", root, "--mark-seen")
	entries, err := os.ReadDir(fsq.MailboxNew(root))
	if err != nil {
		t.Fatalf("ReadDir new: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected new to be empty, got %d", len(entries))
	}
	cur, err := os.ReadDir(fsq.MailboxCur(root))
	if err != nil || len(cur) != 6 {
		t.Fatalf("expected 6 messages in cur, got %d (%v)", len(cur), err)
	}
}

func TestThreadFromDirWithCorruptFile(t *testing.T) {
	out, errOut := captureOutput(t)
	dir := t.TempDir()
	files := map[string]string{
		"1.md":   "---\nid: p\nfrom: jas\nsubject: Hi\ncreated: \"2019-02-01T09:00:00Z\"\n---\nbody\n",
		"2.md":   "---\nid: q\nfrom: ann\nsubject: Re: Hi\ncreated: \"2019-02-01T09:10:00Z\"\nrefs: [p]\n---\nbody\n",
		"bad.md": "garbage",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustRun(t, "thread", "--root", t.TempDir(), "--dir", dir, "--width", "0")
	if !strings.Contains(out.String(), "<p>\n   2019-02-01 09:10  ann  Re: Hi  <q>\n") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), "warning: skipping corrupt message bad.md") {
		t.Fatalf("expected warning, got %q", errOut.String())
	}
}

func TestListOrdersByTime(t *testing.T) {
	out, _ := captureOutput(t)
	root := seedMailbox(t)
	out.Reset()

	mustRun(t, "list", "--root", root, "--json")
	var entries []render.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if got := strings.Join(ids, ","); got != "a,b,c,d,e,b1" {
		t.Fatalf("list order = %s", got)
	}

	out.Reset()
	mustRun(t, "list", "--root", root, "--limit", "2", "--width", "0")
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "<e>") || !strings.HasSuffix(lines[1], "<b1>") {
		t.Fatalf("limited list = %q", out.String())
	}
}

func TestMissingMailbox(t *testing.T) {
	captureOutput(t)
	root := filepath.Join(t.TempDir(), "none")
	for _, cmd := range []string{"list", "thread", "watch"} {
		if err := Run([]string{cmd, "--root", root}); GetExitCode(err) != ExitNotFound {
			t.Fatalf("%s: expected not found, got %v", cmd, err)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	out, _ := captureOutput(t)
	if err := Run([]string{"bogus"}); GetExitCode(err) != ExitUsage {
		t.Fatalf("unknown command: %v", err)
	}
	if err := Run([]string{"list", "--nope"}); GetExitCode(err) != ExitUsage {
		t.Fatalf("unknown flag: %v", err)
	}
	if err := Run([]string{"send", "--root", t.TempDir(), "--from", ""}); GetExitCode(err) != ExitUsage {
		t.Fatalf("missing from: %v", err)
	}
	if err := Run([]string{"send", "--root", t.TempDir(), "--from", "x", "--id", "../x", "--body", "b"}); GetExitCode(err) != ExitUsage {
		t.Fatalf("bad id: %v", err)
	}
	if err := Run([]string{"init", "--root", t.TempDir(), "--orphans", "drop"}); GetExitCode(err) != ExitUsage {
		t.Fatalf("bad policy: %v", err)
	}

	out.Reset()
	mustRun(t, "--help")
	if !strings.Contains(out.String(), "mthread <command>") {
		t.Fatalf("usage = %q", out.String())
	}
	out.Reset()
	mustRun(t, "thread", "-h")
	if !strings.Contains(out.String(), "--strict-orphans") && !strings.Contains(out.String(), "-strict-orphans") {
		t.Fatalf("thread help = %q", out.String())
	}
}

func TestSendReadsStdinAndGeneratesID(t *testing.T) {
	out, _ := captureOutput(t)
	oldIn := stdin
	stdin = strings.NewReader("from stdin\n")
	t.Cleanup(func() { stdin = oldIn })

	root := filepath.Join(t.TempDir(), "mail")
	mustRun(t, "init", "--root", root)
	out.Reset()
	mustRun(t, "send", "--root", root, "--from", "jas", "--host", "example.org", "--json")

	var res map[string]any
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, _ := res["id"].(string)
	if !strings.HasSuffix(id, "@example.org") {
		t.Fatalf("generated id = %q", id)
	}
	data, err := os.ReadFile(filepath.Join(fsq.MailboxNew(root), id+".md"))
	if err != nil {
		t.Fatalf("read delivered message: %v", err)
	}
	if !strings.HasSuffix(string(data), "from stdin\n") {
		t.Fatalf("body not from stdin: %q", data)
	}
}

func TestWatchWithPollingRefreshesOnChange(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var calls atomic.Int32
	refresh := func() error {
		if calls.Add(1) == 2 {
			cancel()
		}
		return nil
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "new.md"), []byte("x"), 0o600)
	}()

	err := watchWithPolling(ctx, []string{dir}, 10*time.Millisecond, refresh)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancel after refresh, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("refresh called %d times, want 2", calls.Load())
	}
}

func TestWatchTimeout(t *testing.T) {
	out, _ := captureOutput(t)
	root := seedMailbox(t)
	out.Reset()
	err := Run([]string{"watch", "--root", root, "--timeout", "100ms", "--poll", "--width", "0"})
	if GetExitCode(err) != ExitTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !strings.Contains(out.String(), "(6 messages)") || !strings.Contains(out.String(), "<b1>") {
		t.Fatalf("expected initial render, got %q", out.String())
	}
}

func TestDirSignatureIgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	before, err := dirSignature([]string{dir})
	if err != nil {
		t.Fatalf("dirSignature: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".x.tmp-1"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	after, err := dirSignature([]string{dir})
	if err != nil {
		t.Fatalf("dirSignature: %v", err)
	}
	if before != after {
		t.Fatalf("hidden file changed the signature")
	}
}
