package cli

import (
	"flag"

	"github.com/avivsinai/mail-thread/internal/mailseq"
	"github.com/avivsinai/mail-thread/internal/render"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	common := addCommonFlags(fs)
	dirFlag := fs.String("dir", "", "Read message files from this directory instead of the mailbox")
	limitFlag := fs.Int("limit", 0, "Only show the newest N messages (0 = no limit)")
	widthFlag := fs.Int("width", -1, "Truncate lines to this width (default: terminal width, 0 = off)")

	usage := usageWithFlags(fs, "mthread list [options]")
	if handled, err := parseFlags(fs, args, usage); err != nil {
		return err
	} else if handled {
		return nil
	}
	if *limitFlag < 0 {
		return UsageError("--limit must be >= 0")
	}

	root := resolveRoot(common.Root)
	seq, _, err := loadSequence(root, *dirFlag, common.logger())
	if err != nil {
		return err
	}
	defer seq.Release()

	var msgs []mailseq.Message
	seq.StartScan()
	for !seq.ScanComplete() {
		msg, _ := seq.Next()
		msgs = append(msgs, msg)
	}
	if *limitFlag > 0 && len(msgs) > *limitFlag {
		msgs = msgs[len(msgs)-*limitFlag:]
	}

	if common.JSON {
		return writeJSON(render.ListEntries(msgs))
	}
	width := *widthFlag
	if width < 0 {
		width = terminalWidth()
	}
	return render.List(stdout, msgs, width)
}
