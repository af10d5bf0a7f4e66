package cli

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/avivsinai/mail-thread/internal/config"
	"github.com/avivsinai/mail-thread/internal/fsq"
	"github.com/avivsinai/mail-thread/internal/render"
	"github.com/avivsinai/mail-thread/internal/thread"
)

func runThread(args []string) error {
	fs := flag.NewFlagSet("thread", flag.ContinueOnError)
	common := addCommonFlags(fs)
	tf := addThreadFlags(fs)
	markSeenFlag := fs.Bool("mark-seen", false, "Move shown messages from mailbox/new to mailbox/cur")

	usage := usageWithFlags(fs, "mthread thread [--id <message_id>] [options]",
		"Replies are nested under the message they answer; replies whose parent",
		"is missing are shown at the top level unless --strict-orphans is set.")
	if handled, err := parseFlags(fs, args, usage); err != nil {
		return err
	} else if handled {
		return nil
	}

	root := resolveRoot(common.Root)
	cfg, err := tf.settings(root)
	if err != nil {
		return err
	}
	logger := common.logger()

	seq, loaded, err := loadSequence(root, tf.Dir, logger)
	if err != nil {
		return err
	}
	defer seq.Release()
	forest, err := buildForest(seq, cfg, logger)
	if err != nil {
		return err
	}
	defer forest.Release()

	if err := printForest(forest, cfg, tf, common.JSON); err != nil {
		return err
	}

	if *markSeenFlag && tf.Dir == "" {
		for _, l := range loaded {
			if l.Box != fsq.BoxNew {
				continue
			}
			if err := fsq.MarkSeen(root, filepath.Base(l.Path)); err != nil {
				return err
			}
		}
	}
	return nil
}

func printForest(forest *thread.Forest, cfg config.Config, tf *threadFlags, asJSON bool) error {
	top := thread.None
	if tf.ID != "" {
		n, ok := forest.Find(tf.ID)
		if !ok {
			return NotFoundError("message not found: %s", tf.ID)
		}
		top = forest.Root(n)
	}

	if asJSON {
		return writeJSON(render.Entries(forest, top))
	}
	width := tf.Width
	if width < 0 {
		width = terminalWidth()
	}
	return render.Text(stdout, forest, render.Options{Indent: cfg.Indent, Width: width, Root: top})
}

// terminalWidth is the width of stdout when it is a terminal, else 0.
func terminalWidth() int {
	if f, ok := stdout.(*os.File); ok {
		return render.TerminalWidth(int(f.Fd()))
	}
	return 0
}
