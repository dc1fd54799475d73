// Package pdf reads DOIs from full-text PDFs and opens them in a reader.
package pdf

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Opener handles resolving and opening PDF files.
type Opener struct {
	pdfRoot   string
	pdfReader string
}

// NewOpener creates a new PDF opener with the given configuration.
func NewOpener(pdfRoot, pdfReader string) *Opener {
	if pdfReader == "" {
		pdfReader = "system"
	}
	return &Opener{
		pdfRoot:   pdfRoot,
		pdfReader: pdfReader,
	}
}

// ResolvePath resolves a full-text path recorded on a study. Absolute paths
// are used as they are; relative ones are joined to the PDF root.
func (o *Opener) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("study has no full text attached")
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		if o.pdfRoot == "" {
			return "", fmt.Errorf("pdf_root not configured")
		}
		fullPath = filepath.Join(o.pdfRoot, path)
	}

	// Check if file exists
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("PDF not found: %s", fullPath)
		}
		return "", fmt.Errorf("checking PDF: %w", err)
	}

	return fullPath, nil
}

// readerArgs maps each pdf_reader value to the launch command per platform.
// A reader with no entry for the running platform falls back to "system".
var readerArgs = map[string]map[string][]string{
	"system":  {"darwin": {"open"}, "linux": {"xdg-open"}},
	"skim":    {"darwin": {"open", "-a", "Skim"}},
	"zathura": {"linux": {"zathura"}},
	"evince":  {"linux": {"evince"}},
	"okular":  {"linux": {"okular"}},
}

// Open launches the configured reader on fullPath without waiting for it.
func (o *Opener) Open(fullPath string) error {
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PDF file does not exist: %s", fullPath)
		}
		return fmt.Errorf("checking PDF file: %w", err)
	}

	argv, err := o.command(runtime.GOOS, fullPath)
	if err != nil {
		return err
	}
	return exec.Command(argv[0], argv[1:]...).Start()
}

// command returns the argv that opens path with the configured reader on goos.
func (o *Opener) command(goos, path string) ([]string, error) {
	byOS, ok := readerArgs[o.pdfReader]
	if !ok {
		return nil, fmt.Errorf("unknown pdf_reader: %s", o.pdfReader)
	}
	base, ok := byOS[goos]
	if !ok {
		base, ok = readerArgs["system"][goos]
	}
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
	argv := append([]string{}, base...)
	return append(argv, path), nil
}
