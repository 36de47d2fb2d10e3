package compact

import (
	"path/filepath"
	"strings"
)

// excluded checks if a path relative to the batch root matches any
// user exclude pattern. Patterns support:
//   - Simple glob patterns: *.tmp, *.log
//   - Directory patterns: .git/, raw/
//   - Path patterns: drafts/*, **/thumbs/*
func excluded(relativePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	normalizedPath := filepath.ToSlash(relativePath)
	baseName := filepath.Base(relativePath)

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		normalizedPattern := filepath.ToSlash(pattern)

		if strings.HasSuffix(normalizedPattern, "/") {
			dirPattern := strings.TrimSuffix(normalizedPattern, "/")
			if strings.HasPrefix(normalizedPath, dirPattern+"/") ||
				normalizedPath == dirPattern ||
				strings.Contains(normalizedPath, "/"+dirPattern+"/") ||
				strings.HasSuffix(normalizedPath, "/"+dirPattern) {
				return true
			}
			continue
		}

		// **/pattern matches at any depth
		if strings.Contains(normalizedPattern, "**") {
			parts := strings.Split(normalizedPattern, "**/")
			if len(parts) == 2 && parts[0] == "" {
				suffix := parts[1]
				if matchGlob(baseName, suffix) ||
					strings.HasSuffix(normalizedPath, "/"+suffix) ||
					normalizedPath == suffix ||
					matchGlobPath(normalizedPath, suffix) {
					return true
				}
			}
			continue
		}

		if strings.Contains(normalizedPattern, "/") {
			if matched, _ := filepath.Match(normalizedPattern, normalizedPath); matched {
				return true
			}
			if strings.HasSuffix(normalizedPath, normalizedPattern) {
				return true
			}
		} else if matchGlob(baseName, normalizedPattern) {
			return true
		}
	}

	return false
}

// matchGlob performs simple glob matching on a single path component
func matchGlob(name, pattern string) bool {
	matched, _ := filepath.Match(pattern, name)
	return matched
}

// matchGlobPath checks if any component of the path matches the pattern
func matchGlobPath(path, pattern string) bool {
	for _, part := range strings.Split(path, "/") {
		if matchGlob(part, pattern) {
			return true
		}
	}
	return false
}
