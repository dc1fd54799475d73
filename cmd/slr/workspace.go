package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/config"
	"github.com/matsen/slr/internal/review"
	"github.com/matsen/slr/internal/storage"
)

// session bundles what a workspace command needs.
type session struct {
	root string
	cfg  *config.Config
	ws   *storage.Workspace
	svc  *review.Service
}

// storagePaths maps the workspace layout onto the JSONL files.
func storagePaths(root string) storage.Paths {
	return storage.Paths{
		Reviews:   config.ReviewsPath(root),
		Studies:   config.StudiesPath(root),
		Questions: config.QuestionsPath(root),
		Protocols: config.ProtocolsPath(root),
	}
}

// getWorkspaceRoot returns the workspace root, or exits with a config error.
func getWorkspaceRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.ResolveRoot(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return root
}

// openSession finds the workspace and wires storage into the review service.
func openSession() *session {
	root := getWorkspaceRoot()

	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	ws := storage.NewWorkspace(storagePaths(root))
	logger.Debug("opened workspace", "root", root)
	return &session{root: root, cfg: cfg, ws: ws, svc: review.NewService(ws)}
}

// reviewID resolves the systematic study a command acts on: --review, then
// default_review from the workspace config.
func (s *session) reviewID() uuid.UUID {
	raw := reviewFlag
	if raw == "" {
		raw = s.cfg.DefaultReview
	}
	if raw == "" {
		exitWithError(ExitConfigError, "no review selected (use --review or 'slr review use <id>')")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		exitWithError(ExitConfigError, "invalid review id %q: %v", raw, err)
	}
	return id
}

// reviewer returns the owner recorded on new systematic studies.
func (s *session) reviewer() string {
	if s.cfg.Reviewer != "" {
		return s.cfg.Reviewer
	}
	return config.GetReviewer()
}

// openDB opens the query cache and rebuilds it if studies.jsonl changed.
func (s *session) openDB() *storage.DB {
	if err := os.MkdirAll(config.CachePath(s.root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	db, err := storage.OpenDB(config.DBPath(s.root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}

	rebuilt, err := db.Sync(config.StudiesPath(s.root))
	if err != nil {
		db.Close()
		exitWithError(ExitDataError, "syncing query cache: %v", err)
	}
	if rebuilt {
		logger.Info("rebuilt query cache")
	}
	return db
}

// refreshCache brings the query cache up to date after a write. A stale
// cache is rebuilt on the next read, so failures only warn.
func (s *session) refreshCache() {
	if err := os.MkdirAll(config.CachePath(s.root), 0755); err != nil {
		logger.Warn("creating cache directory", "error", err)
		return
	}
	db, err := storage.OpenDB(config.DBPath(s.root))
	if err != nil {
		logger.Warn("opening query cache", "error", err)
		return
	}
	defer db.Close()

	if _, err := db.Sync(config.StudiesPath(s.root)); err != nil {
		logger.Warn("refreshing query cache", "error", err)
	}
}

// parseStudyID parses a positive study review id.
func parseStudyID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid study id %q: must be a positive integer", raw)
	}
	return id, nil
}

// mustStudyID parses a study id argument or exits with a usage error.
func mustStudyID(raw string) int64 {
	id, err := parseStudyID(raw)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return id
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(path string) []byte {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", path, err)
	}
	return data
}
