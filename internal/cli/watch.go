package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/avivsinai/mail-thread/internal/fsq"
)

const (
	watchSettle   = 50 * time.Millisecond
	watchPollTick = 500 * time.Millisecond
)

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	common := addCommonFlags(fs)
	tf := addThreadFlags(fs)
	timeoutFlag := fs.Duration("timeout", 0, "Stop after this long (0 = until interrupted)")
	pollFlag := fs.Bool("poll", false, "Use polling instead of fsnotify (for network filesystems)")

	usage := usageWithFlags(fs, "mthread watch [--timeout <duration>] [options]")
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

	dirs := []string{fsq.MailboxNew(root), fsq.MailboxCur(root)}
	if tf.Dir != "" {
		dirs = []string{tf.Dir}
	}
	for _, dir := range dirs {
		if !dirExists(dir) {
			return NotFoundError("directory not found: %s (run mthread init)", dir)
		}
	}

	refresh := func() error {
		seq, _, err := loadSequence(root, tf.Dir, logger)
		if err != nil {
			return err
		}
		defer seq.Release()
		forest, err := buildForest(seq, cfg, logger)
		if err != nil {
			// A strict orphan may resolve once its parent arrives.
			if GetExitCode(err) == ExitThread {
				return writeStderr("warning: %v\n", err)
			}
			return err
		}
		defer forest.Release()
		if !common.JSON {
			if err := writeStdout("--- %s (%d messages)\n", time.Now().Format(time.TimeOnly), forest.Len()); err != nil {
				return err
			}
		}
		return printForest(forest, cfg, tf, common.JSON)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeoutFlag)
		defer cancel()
	}

	if *pollFlag {
		err = watchWithPolling(ctx, dirs, watchPollTick, refresh)
	} else {
		err = watchWithFsnotify(ctx, dirs, logger, refresh)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return TimeoutError("watch timed out after %s", *timeoutFlag)
	case errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

// watchWithFsnotify calls refresh once, then again after every burst of
// changes in dirs, until ctx is done.
func watchWithFsnotify(ctx context.Context, dirs []string, logger *slog.Logger, refresh func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, polling", "err", err)
		return watchWithPolling(ctx, dirs, watchPollTick, refresh)
	}
	defer func() { _ = watcher.Close() }()
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("cannot watch directory, polling", "dir", dir, "err", err)
			return watchWithPolling(ctx, dirs, watchPollTick, refresh)
		}
	}

	// Render after the watcher is set up so nothing written in between is missed.
	if err := refresh(); err != nil {
		return err
	}

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Write) != 0 {
				logger.Debug("mailbox changed", "event", event.String())
				settle = time.After(watchSettle)
			}
		case <-settle:
			settle = nil
			if err := refresh(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			return err
		}
	}
}

func watchWithPolling(ctx context.Context, dirs []string, tick time.Duration, refresh func() error) error {
	last, err := dirSignature(dirs)
	if err != nil {
		return err
	}
	if err := refresh(); err != nil {
		return err
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sig, err := dirSignature(dirs)
			if err != nil {
				return err
			}
			if sig == last {
				continue
			}
			last = sig
			if err := refresh(); err != nil {
				return err
			}
		}
	}
}

// dirSignature summarizes the visible files in dirs so polling can tell when
// something changed.
func dirSignature(dirs []string) (string, error) {
	var parts []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s/%s:%d:%d", dir, entry.Name(), info.Size(), info.ModTime().UnixNano()))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "\n"), nil
}
