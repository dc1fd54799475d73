// Package config handles workspace and global configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents workspace configuration stored in .slr/config.json.
type Config struct {
	DefaultReview string `json:"default_review,omitempty"` // systematic study used when --review is omitted
	Reviewer      string `json:"reviewer,omitempty"`       // owner recorded on new systematic studies
	PDFRoot       string `json:"pdf_root,omitempty"`       // folder relative full-text paths are resolved against
	PDFReader     string `json:"pdf_reader,omitempty"`     // system, skim, zathura, evince, okular
}

const (
	WorkspaceDir  = ".slr"
	ConfigFile    = "config.json"
	ReviewsFile   = "reviews.jsonl"
	StudiesFile   = "studies.jsonl"
	QuestionsFile = "questions.jsonl"
	ProtocolsFile = "protocols.jsonl"
	CacheDir      = "cache"
	DBFile        = "slr.db"

	// RootEnv overrides the workspace search.
	RootEnv = "SLR_ROOT"
)

// ValidReaders lists the supported PDF reader values.
var ValidReaders = []string{"system", "skim", "zathura", "evince", "okular"}

// Keys lists the settable workspace configuration keys.
var Keys = []string{"default_review", "reviewer", "pdf_root", "pdf_reader"}

// WorkspacePath returns the path to the .slr directory from a root path.
func WorkspacePath(root string) string {
	return filepath.Join(root, WorkspaceDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, WorkspaceDir, ConfigFile)
}

// ReviewsPath returns the path to reviews.jsonl from a root path.
func ReviewsPath(root string) string {
	return filepath.Join(root, WorkspaceDir, ReviewsFile)
}

// StudiesPath returns the path to studies.jsonl from a root path.
func StudiesPath(root string) string {
	return filepath.Join(root, WorkspaceDir, StudiesFile)
}

// QuestionsPath returns the path to questions.jsonl from a root path.
func QuestionsPath(root string) string {
	return filepath.Join(root, WorkspaceDir, QuestionsFile)
}

// ProtocolsPath returns the path to protocols.jsonl from a root path.
func ProtocolsPath(root string) string {
	return filepath.Join(root, WorkspaceDir, ProtocolsFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir)
}

// DBPath returns the path to slr.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir, DBFile)
}

// IsWorkspace checks if the given path contains an slr workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(WorkspacePath(root))
	return err == nil && info.IsDir()
}

// FindWorkspace walks up from the given path to find an slr workspace.
// Returns the workspace root path or an error if not found.
func FindWorkspace(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in an slr workspace (no %s directory found)", WorkspaceDir)
		}
		abs = parent
	}
}

// ResolveRoot finds the workspace to use: $SLR_ROOT, then a walk up from
// start, then workspace_path from the global config.
func ResolveRoot(start string) (string, error) {
	if env := os.Getenv(RootEnv); env != "" {
		root := ExpandPath(env)
		if !IsWorkspace(root) {
			return "", fmt.Errorf("%s=%s is not an slr workspace", RootEnv, env)
		}
		return root, nil
	}

	root, err := FindWorkspace(start)
	if err == nil {
		return root, nil
	}

	if global, gerr := LoadGlobalConfig(); gerr == nil && global.WorkspacePath != "" {
		if IsWorkspace(global.WorkspacePath) {
			return global.WorkspacePath, nil
		}
		return "", fmt.Errorf("configured workspace_path is not an slr workspace: %s", global.WorkspacePath)
	}
	return "", err
}

// Load reads configuration from the workspace at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Save writes configuration to the workspace at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Get returns the value of a configuration key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "default_review":
		return c.DefaultReview, nil
	case "reviewer":
		return c.Reviewer, nil
	case "pdf_root":
		return c.PDFRoot, nil
	case "pdf_reader":
		return c.PDFReader, nil
	}
	return "", fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys)
}

// Set validates and assigns a configuration key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_review":
		c.DefaultReview = value
	case "reviewer":
		c.Reviewer = value
	case "pdf_root":
		if err := ValidatePDFRoot(value); err != nil {
			return err
		}
		c.PDFRoot = value
	case "pdf_reader":
		if err := ValidatePDFReader(value); err != nil {
			return err
		}
		c.PDFReader = value
	default:
		return fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys)
	}
	return nil
}

// ValidatePDFRoot checks that the PDF root path exists and is a directory.
func ValidatePDFRoot(path string) error {
	if path == "" {
		return nil // Empty is allowed (not yet configured)
	}

	expandedPath := ExpandPath(path)

	info, err := os.Stat(expandedPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", expandedPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", expandedPath)
	}

	return nil
}

// ValidatePDFReader checks that the reader value is valid.
func ValidatePDFReader(reader string) error {
	if reader == "" {
		return nil // Empty defaults to "system"
	}

	for _, valid := range ValidReaders {
		if reader == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid pdf_reader: %s (valid: %v)", reader, ValidReaders)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
