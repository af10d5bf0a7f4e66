package cli

import (
	"flag"
	"time"

	"github.com/avivsinai/mail-thread/internal/config"
	"github.com/avivsinai/mail-thread/internal/format"
	"github.com/avivsinai/mail-thread/internal/fsq"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	rootFlag := fs.String("root", defaultRoot(), "Mail root directory (or "+envRoot+")")
	orphansFlag := fs.String("orphans", "root", "Unresolved replies: root or strict")
	indexFlag := fs.Bool("index", false, "Resolve replies through an id index by default")
	indentFlag := fs.Int("indent", config.DefaultIndent, "Spaces per reply level in text output")
	forceFlag := fs.Bool("force", false, "Overwrite existing config.json if present")

	usage := usageWithFlags(fs, "mthread init [--root <path>] [--orphans root|strict] [--index] [--force]")
	if handled, err := parseFlags(fs, args, usage); err != nil {
		return err
	} else if handled {
		return nil
	}

	cfg := config.Config{
		Version:    format.CurrentVersion,
		CreatedUTC: time.Now().UTC().Format(time.RFC3339),
		Orphans:    *orphansFlag,
		Index:      *indexFlag,
		Indent:     *indentFlag,
	}
	if err := cfg.Validate(); err != nil {
		return UsageError("%v", err)
	}

	root := absPath(resolveRoot(*rootFlag))
	if err := fsq.EnsureRootDirs(root); err != nil {
		return err
	}
	if err := config.WriteConfig(fsq.ConfigPath(root), cfg, *forceFlag); err != nil {
		return err
	}
	return writeStdout("Initialized mail root at %s\n", root)
}
