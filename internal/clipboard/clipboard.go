// Package clipboard copies exported BibTeX to the system clipboard by
// piping it into the platform's copy command.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no copy command is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// candidates lists copy commands per GOOS in order of preference.
var candidates = map[string][][]string{
	"darwin": {{"pbcopy"}},
	"linux": {
		{"wl-copy"},
		{"xclip", "-selection", "clipboard"},
		{"xsel", "--clipboard", "--input"},
	},
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// command returns the first installed copy command for goos.
func command(goos string) ([]string, error) {
	for _, argv := range candidates[goos] {
		if _, err := lookPath(argv[0]); err == nil {
			return argv, nil
		}
	}
	return nil, ErrClipboardUnavailable
}

// IsAvailable reports whether Copy can work on this system.
func IsAvailable() bool {
	_, err := command(runtime.GOOS)
	return err == nil
}

// Copy replaces the clipboard contents with text.
func Copy(text string) error {
	argv, err := command(runtime.GOOS)
	if err != nil {
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
