package fsq

import (
	"os"
	"path/filepath"
)

// Maildir subdirectories.
const (
	BoxTmp = "tmp"
	BoxNew = "new"
	BoxCur = "cur"
)

// Path helpers for the standard root layout:
//
//	<root>/mailbox/{tmp,new,cur}
//	<root>/meta/config.json

func MailboxDir(root string) string {
	return filepath.Join(root, "mailbox")
}

func MailboxTmp(root string) string {
	return filepath.Join(root, "mailbox", BoxTmp)
}

func MailboxNew(root string) string {
	return filepath.Join(root, "mailbox", BoxNew)
}

func MailboxCur(root string) string {
	return filepath.Join(root, "mailbox", BoxCur)
}

func MetaDir(root string) string {
	return filepath.Join(root, "meta")
}

func ConfigPath(root string) string {
	return filepath.Join(root, "meta", "config.json")
}

// DeliveryLockPath is the lock file held while writing into the mailbox.
func DeliveryLockPath(root string) string {
	return filepath.Join(root, "meta", "deliver.lock")
}

func EnsureRootDirs(root string) error {
	for _, dir := range []string{
		MailboxTmp(root),
		MailboxNew(root),
		MailboxCur(root),
		MetaDir(root),
	} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}
