package cli

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/avivsinai/mail-thread/internal/config"
	"github.com/avivsinai/mail-thread/internal/fsq"
	"github.com/avivsinai/mail-thread/internal/index"
	"github.com/avivsinai/mail-thread/internal/mailseq"
	"github.com/avivsinai/mail-thread/internal/thread"
)

// threadFlags are shared by thread and watch. Unset flags fall back to
// meta/config.json.
type threadFlags struct {
	Dir           string
	Index         bool
	StrictOrphans bool
	Indent        int
	Width         int
	ID            string
}

func addThreadFlags(fs *flag.FlagSet) *threadFlags {
	flags := &threadFlags{}
	fs.StringVar(&flags.Dir, "dir", "", "Read message files from this directory instead of the mailbox")
	fs.BoolVar(&flags.Index, "index", false, "Resolve replies through an id index")
	fs.BoolVar(&flags.StrictOrphans, "strict-orphans", false, "Fail when a reply's parent is missing")
	fs.IntVar(&flags.Indent, "indent", -1, "Spaces per reply level (default from config)")
	fs.IntVar(&flags.Width, "width", -1, "Truncate lines to this width (default: terminal width, 0 = off)")
	fs.StringVar(&flags.ID, "id", "", "Only show the thread containing this message id")
	return flags
}

// settings merges flags over the root's config.
func (f *threadFlags) settings(root string) (config.Config, error) {
	cfg, err := config.LoadOrDefault(fsq.ConfigPath(root))
	if err != nil {
		return config.Config{}, err
	}
	if f.Index {
		cfg.Index = true
	}
	if f.StrictOrphans {
		cfg.Orphans = thread.OrphanStrict.String()
	}
	if f.Indent >= 0 {
		cfg.Indent = f.Indent
	}
	return cfg, cfg.Validate()
}

// loadSequence reads the mailbox (or dir) into an ordered sequence. Corrupt
// files are skipped with a warning.
func loadSequence(root, dir string, logger *slog.Logger) (*mailseq.Sequence, []fsq.Loaded, error) {
	onError := func(path string, parseErr error) error {
		logger.Debug("skipping message", "path", path, "err", parseErr)
		return writeStderr("warning: skipping corrupt message %s: %v\n", filepath.Base(path), parseErr)
	}
	var (
		loaded []fsq.Loaded
		err    error
	)
	if dir != "" {
		if !dirExists(dir) {
			return nil, nil, NotFoundError("directory not found: %s", dir)
		}
		loaded, err = fsq.LoadDir(dir, onError)
	} else {
		if !dirExists(fsq.MailboxDir(root)) {
			return nil, nil, NotFoundError("no mailbox at %s (run mthread init)", root)
		}
		loaded, err = fsq.LoadMailbox(root, onError)
	}
	if err != nil {
		return nil, nil, err
	}

	seq := mailseq.New()
	for _, l := range loaded {
		seq.InsertOrdered(l.Message)
	}
	logger.Debug("mailbox loaded", "root", root, "dir", dir, "messages", seq.Len())
	return seq, loaded, nil
}

func buildForest(seq *mailseq.Sequence, cfg config.Config, logger *slog.Logger) (*thread.Forest, error) {
	policy, err := cfg.OrphanPolicy()
	if err != nil {
		return nil, err
	}
	opts := []thread.Option{thread.WithOrphanPolicy(policy), thread.WithLogger(logger)}
	if cfg.Index {
		opts = append(opts, thread.WithIndex(index.New[thread.NodeID]()))
	}
	forest, err := thread.Build(seq, opts...)
	if err != nil {
		if errors.Is(err, thread.ErrOrphan) || errors.Is(err, thread.ErrUnordered) {
			return nil, WithExitCode(ExitThread, fmt.Errorf("build threads: %w", err))
		}
		return nil, err
	}
	return forest, nil
}
