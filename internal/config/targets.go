package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// TargetSources names where target URLs come from. Every source kind may
// be given more than once; the combined list is deduplicated while
// preserving first-seen order, so re-running with a failed-URL file
// prepended retries those targets first.
type TargetSources struct {
	// URLs are targets given directly on the command line.
	URLs []string

	// Files are plaintext files with one URL per line. Blank lines and
	// lines starting with '#' are skipped.
	Files []string

	// JSONFiles are files holding a JSON array of URL strings.
	JSONFiles []string
}

// LoadTargets gathers, normalizes and deduplicates the target list.
// Schemeless entries get an "http://" prefix when assumeHTTP is set and
// are otherwise dropped with a warning; dropped entries never fail the
// load.
func LoadTargets(sources TargetSources, assumeHTTP bool, logger *slog.Logger) ([]model.Target, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var raw []string
	raw = append(raw, sources.URLs...)

	for _, path := range sources.Files {
		entries, err := readLineFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read target file %s: %w", path, err)
		}
		raw = append(raw, entries...)
	}

	for _, path := range sources.JSONFiles {
		entries, err := readJSONFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read target list %s: %w", path, err)
		}
		raw = append(raw, entries...)
	}

	seen := make(map[string]struct{}, len(raw))
	targets := make([]model.Target, 0, len(raw))
	for _, entry := range raw {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		target, err := model.NewTarget(trimmed, assumeHTTP)
		if err != nil {
			if errors.Is(err, model.ErrMissingScheme) {
				logger.Warn("dropping target without http scheme", "url", trimmed)
				continue
			}
			return nil, err
		}

		if _, ok := seen[target.URL]; ok {
			continue
		}
		seen[target.URL] = struct{}{}
		targets = append(targets, target)
	}

	return targets, nil
}

// readLineFile reads one URL per line.
func readLineFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided target list path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entries = append(entries, scanner.Text())
	}
	return entries, scanner.Err()
}

// readJSONFile reads a JSON array of URL strings.
func readJSONFile(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided target list path is intentional
	if err != nil {
		return nil, err
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("not a JSON array of strings: %w", err)
	}
	return entries, nil
}
