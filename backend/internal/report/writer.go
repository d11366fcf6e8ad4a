package report

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	apperrors "research-graph/backend/pkg/errors"
	"research-graph/backend/pkg/logger"
)

// Writer persists builds as one directory per build under a root directory
type Writer struct {
	root   string
	logger *zap.Logger
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{root: dir, logger: logger.Named("report")}
}

// Write stores every file of build in <root>/<name>/, replacing earlier
// builds of the same name. It returns the build directory.
func (w *Writer) Write(build *Build) (string, error) {
	if build == nil {
		return "", apperrors.ErrReportSkipped
	}
	if build.Name == "" {
		return "", apperrors.NewReportWriteFailed(build.Topic, errors.New("topic has no usable characters for a directory name"))
	}

	dir := filepath.Join(w.root, build.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.NewReportWriteFailed(build.Name, err)
	}

	names := make([]string, 0, len(build.Files))
	for name := range build.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(build.Files[name]), 0o644); err != nil {
			return "", apperrors.NewReportWriteFailed(build.Name, err)
		}
	}

	w.logger.Info("Build written",
		zap.String("name", build.Name),
		zap.String("dir", dir),
		zap.Int("files", len(names)),
	)
	return dir, nil
}
