package fsq

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Deliver writes a message using Maildir semantics (tmp -> new) and returns
// the final path in mailbox/new.
func Deliver(root, filename string, data []byte) (string, error) {
	tmpDir := MailboxTmp(root)
	newDir := MailboxNew(root)
	for _, dir := range []string{tmpDir, newDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
	}
	tmpPath := filepath.Join(tmpDir, filename)
	newPath := filepath.Join(newDir, filename)
	if _, err := os.Stat(newPath); err == nil {
		return "", fmt.Errorf("message %s already delivered", filename)
	}
	if err := writeAndSync(tmpPath, data, 0o600); err != nil {
		return "", err
	}
	if err := SyncDir(tmpDir); err != nil {
		return "", cleanupTemp(tmpPath, err)
	}
	if err := os.Rename(tmpPath, newPath); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			err = fmt.Errorf("rename tmp->new: different filesystems: %w", err)
		} else {
			err = fmt.Errorf("rename tmp->new: %w", err)
		}
		return "", cleanupTemp(tmpPath, err)
	}
	if err := SyncDir(newDir); err != nil {
		return "", fmt.Errorf("sync new dir: %w", err)
	}
	return newPath, nil
}

// MarkSeen moves a delivered message from mailbox/new to mailbox/cur.
func MarkSeen(root, filename string) error {
	newPath := filepath.Join(MailboxNew(root), filename)
	curDir := MailboxCur(root)
	if err := os.MkdirAll(curDir, 0o700); err != nil {
		return err
	}
	if err := os.Rename(newPath, filepath.Join(curDir, filename)); err != nil {
		return err
	}
	if err := SyncDir(MailboxNew(root)); err != nil {
		return err
	}
	return SyncDir(curDir)
}
