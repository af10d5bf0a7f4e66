package cli

import "fmt"

const (
	envRoot = "MT_ROOT"
	envFrom = "MT_FROM"
)

func Run(args []string) error {
	if len(args) == 0 || isHelp(args[0]) {
		return printUsage()
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "send":
		return runSend(args[1:])
	case "list":
		return runList(args[1:])
	case "thread", "show":
		return runThread(args[1:])
	case "watch":
		return runWatch(args[1:])
	default:
		return UsageError("unknown command: %s", args[0])
	}
}

func printUsage() error {
	lines := []string{
		"mthread - reconstruct mail threads from a mailbox",
		"",
		"Usage:",
		"  mthread <command> [options]",
		"",
		"Commands:",
		"  init      Create the mailbox and meta/config.json",
		"  send      Deliver a message (optionally as a reply)",
		"  list      List messages in timestamp order",
		"  thread    Show messages as reply threads",
		"  watch     Show threads and refresh when the mailbox changes",
		"",
		"Environment:",
		fmt.Sprintf("  %-9s Default mail root", envRoot),
		fmt.Sprintf("  %-9s Default sender for send", envFrom),
	}
	for _, line := range lines {
		if err := writeStdoutLine(line); err != nil {
			return err
		}
	}
	return nil
}
