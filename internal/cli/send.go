package cli

import (
	"flag"
	"strings"
	"time"

	"github.com/avivsinai/mail-thread/internal/format"
	"github.com/avivsinai/mail-thread/internal/fsq"
	"github.com/avivsinai/mail-thread/internal/lock"
)

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	common := addCommonFlags(fs)
	fromFlag := fs.String("from", defaultFrom(), "Sender (or "+envFrom+")")
	subjectFlag := fs.String("subject", "", "Message subject")
	replyFlag := fs.String("reply-to", "", "Id of the message this replies to")
	refsFlag := fs.String("refs", "", "Comma-separated ancestor ids, oldest first")
	bodyFlag := fs.String("body", "", "Body string, @file, or empty to read stdin")
	createdFlag := fs.String("created", "", "Creation time, RFC3339 (default now)")
	idFlag := fs.String("id", "", "Message id (default generated)")
	hostFlag := fs.String("host", "", "Host part of generated ids (default hostname)")

	usage := usageWithFlags(fs, "mthread send --from <sender> --subject <text> [--reply-to <id>] [options]")
	if handled, err := parseFlags(fs, args, usage); err != nil {
		return err
	} else if handled {
		return nil
	}
	from := strings.TrimSpace(*fromFlag)
	if from == "" {
		return UsageError("--from is required (or set %s)", envFrom)
	}

	now := time.Now().UTC()
	if raw := strings.TrimSpace(*createdFlag); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return UsageError("--created: %v", err)
		}
		now = ts.UTC()
	}
	id := strings.TrimSpace(*idFlag)
	if id == "" {
		var err error
		if id, err = format.NewMessageID(now, *hostFlag); err != nil {
			return err
		}
	}
	filename, err := messageFilename(id)
	if err != nil {
		return UsageError("%v", err)
	}

	body, err := readBody(*bodyFlag)
	if err != nil {
		return err
	}

	msg := format.Message{
		Header: format.Header{
			Schema:    format.CurrentSchema,
			ID:        id,
			From:      from,
			Subject:   strings.TrimSpace(*subjectFlag),
			Created:   now.Format(time.RFC3339Nano),
			InReplyTo: strings.TrimSpace(*replyFlag),
			Refs:      splitList(*refsFlag),
		},
		Body: body,
	}
	data, err := msg.Marshal()
	if err != nil {
		return err
	}

	root := resolveRoot(common.Root)
	var path string
	if err := lock.Exclusive(fsq.DeliveryLockPath(root), func() error {
		var derr error
		path, derr = fsq.Deliver(root, filename, data)
		return derr
	}); err != nil {
		return err
	}
	common.logger().Debug("message delivered", "id", id, "path", path)

	if common.JSON {
		return writeJSON(map[string]any{
			"id":          id,
			"path":        path,
			"created":     msg.Header.Created,
			"in_reply_to": msg.Header.InReplyTo,
		})
	}
	return writeStdout("Sent %s\n", id)
}

func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(parts) == 0 {
		return nil
	}
	return parts
}
