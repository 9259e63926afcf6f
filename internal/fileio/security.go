// Package fileio resolves, validates, reads, and frames file content
// for embedding into prompts. All access is sandboxed: relative paths
// are refused, symlinks are resolved, and system directories are denied.
package fileio

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// dangerousPaths are roots that must never be read or scanned. A
// resolved path matching one of these, or living under one, is refused.
var dangerousPaths = []string{
	"/",
	"/etc",
	"/usr",
	"/bin",
	"/sbin",
	"/root",
	"/home",
	"/boot",
	"/dev",
	"/proc",
	"/sys",
	"/var/log",
	"/var/mail",
	"/var/spool",
	"/var/run",
	"/var/db",
	`C:\`,
	`C:\Windows`,
	`C:\Program Files`,
	`C:\Program Files (x86)`,
	`C:\Users`,
	`C:\ProgramData`,
}

// traversalPatterns are rejected anywhere in the raw input, before any
// resolution, covering plain, URL-encoded, and hex-encoded forms.
var traversalPatterns = []string{
	"..",
	"..%2f",
	"..%5c",
	"%2e%2e",
	"%252e%252e",
	"..;/",
	`..\x2f`,
	`..\x5c`,
}

// serverDir is the resolved directory of the running binary; reads
// inside it are refused so a tool cannot exfiltrate the server itself.
var serverDir = detectServerDir()

func detectServerDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil {
		exe = real
	}
	return filepath.Dir(exe)
}

// ValidatePath checks a caller-supplied path and returns its resolved
// canonical form. It refuses relative inputs, traversal and null-byte
// tricks, the deny list, the user's home root, and the server's own
// directory.
func ValidatePath(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty path")
	}

	lower := strings.ToLower(raw)
	for _, pattern := range traversalPatterns {
		if strings.Contains(lower, pattern) {
			return "", fmt.Errorf("path %q contains traversal pattern %q", raw, pattern)
		}
	}
	if strings.ContainsRune(raw, 0) || strings.Contains(lower, "%00") {
		return "", fmt.Errorf("path %q contains a null byte", raw)
	}

	if !filepath.IsAbs(raw) {
		return "", fmt.Errorf("path %q must be absolute", raw)
	}

	resolved := filepath.Clean(raw)
	if real, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = real
	}

	if err := checkResolved(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

func checkResolved(resolved string) error {
	// Filesystem root is always denied.
	if filepath.Dir(resolved) == resolved {
		return fmt.Errorf("refusing filesystem root %q", resolved)
	}

	for _, dangerous := range dangerousPaths {
		d := filepath.Clean(dangerous)
		if resolved == d {
			return fmt.Errorf("path %q is a protected system directory", resolved)
		}
		if d != string(filepath.Separator) && strings.HasPrefix(resolved, d+string(filepath.Separator)) {
			// /home and /root themselves are denied above; files under a
			// user's own home are fine, so only deny the immediate roots.
			if d == "/home" || d == "/root" {
				continue
			}
			return fmt.Errorf("path %q is under protected directory %q", resolved, d)
		}
	}

	if home, err := os.UserHomeDir(); err == nil && resolved == filepath.Clean(home) {
		return fmt.Errorf("refusing home directory root %q", resolved)
	}

	if serverDir != "" && (resolved == serverDir || strings.HasPrefix(resolved, serverDir+string(filepath.Separator))) {
		return fmt.Errorf("path %q is inside the server's own directory", resolved)
	}

	if runtime.GOOS == "windows" && len(resolved) <= 3 {
		return fmt.Errorf("refusing drive root %q", resolved)
	}
	return nil
}
