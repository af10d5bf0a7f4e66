package format

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"
)

// NewMessageID returns a mail-style id "<stamp>.<random>@<host>". The stamp
// comes first so ids sort by creation time. An empty host falls back to the
// machine hostname.
func NewMessageID(now time.Time, host string) (string, error) {
	stamp := now.UTC().Format("20060102T150405.000000Z")
	host = strings.TrimSpace(host)
	if host == "" {
		host = localHost()
	}
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("message id: %w", err)
	}
	return fmt.Sprintf("%s.%s@%s", stamp, hex.EncodeToString(buf), host), nil
}

func localHost() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return strings.ToLower(name)
}
