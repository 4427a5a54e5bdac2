package review

import (
	"os"

	"golang.org/x/term"
)

// IsTTY checks if the given file descriptor is a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsOutputTerminal checks if stdout is a TTY. Used to pick human-readable
// log formatting for interactive runs and JSON for CI pipelines.
func IsOutputTerminal() bool {
	return IsTTY(os.Stdout.Fd())
}
