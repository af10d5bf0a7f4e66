package fsq

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/avivsinai/mail-thread/internal/format"
)

// Loaded is a parsed message and where it was read from.
type Loaded struct {
	Path    string
	Box     string
	Message *format.Message
}

// LoadMailbox reads every message in mailbox/new and mailbox/cur.
// onError is called when a message cannot be parsed; returning a non-nil
// error aborts the load. A nil onError aborts on the first bad file.
func LoadMailbox(root string, onError func(path string, err error) error) ([]Loaded, error) {
	var out []Loaded
	for _, box := range []string{BoxNew, BoxCur} {
		loaded, err := loadDir(filepath.Join(MailboxDir(root), box), box, onError)
		if err != nil {
			return nil, err
		}
		out = append(out, loaded...)
	}
	return out, nil
}

// LoadDir reads every message file directly inside dir.
func LoadDir(dir string, onError func(path string, err error) error) ([]Loaded, error) {
	return loadDir(dir, "", onError)
}

func loadDir(dir, box string, onError func(path string, err error) error) ([]Loaded, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	out := make([]Loaded, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		msg, err := format.ReadMessageFile(path)
		if err != nil {
			if onError == nil {
				return nil, err
			}
			if cbErr := onError(path, err); cbErr != nil {
				return nil, cbErr
			}
			continue
		}
		out = append(out, Loaded{Path: path, Box: box, Message: msg})
	}
	return out, nil
}
