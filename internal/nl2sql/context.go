package nl2sql

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// LoadAdditionalContext reads the operator supplied context file. Blank lines
// and lines starting with # are dropped and the remainder is capped at
// maxChars characters. Any problem yields an empty string.
func LoadAdditionalContext(path string, maxChars int, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no additional context file", "path", path)
		} else {
			logger.Warn("failed to load additional context", "path", path, "error", err)
		}
		return ""
	}
	if !info.Mode().IsRegular() {
		logger.Debug("additional context path is not a regular file", "path", path)
		return ""
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to load additional context", "path", path, "error", err)
		return ""
	}

	kept := make([]string, 0)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
	}
	text := strings.Join(kept, "\n")
	if maxChars > 0 {
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	text = strings.TrimSpace(text)

	logger.Info("loaded additional context", "path", path, "chars", len([]rune(text)))
	return text
}
