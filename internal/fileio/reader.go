package fileio

import (
	"fmt"
	"os"
	"strings"
)

// maxStandardReadBytes is the size above which ReadFile switches from a
// single read to the chunked streaming reader.
const maxStandardReadBytes = 1 << 20

// ReadOptions controls formatting of a framed read.
type ReadOptions struct {
	LineNumbers bool
}

// ReadFile validates path, reads its content (streaming for large
// files), and returns a framed block:
//
//	--- BEGIN FILE: <absolute-path> ---
//	<body>
//	--- END FILE: <absolute-path> ---
//
// Read errors come back as a framed ERROR block instead of an error so the
// LLM sees why a file is missing instead of the whole request failing.
func ReadFile(path string, opts ReadOptions) string {
	resolved, err := ValidatePath(path)
	if err != nil {
		return errorBlock(path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return errorBlock(path, err)
	}
	if info.IsDir() {
		return errorBlock(path, fmt.Errorf("is a directory; pass individual files or use directory expansion"))
	}

	var body string
	if info.Size() > maxStandardReadBytes {
		body, err = streamFile(resolved)
	} else {
		var data []byte
		data, err = os.ReadFile(resolved)
		body = string(data)
	}
	if err != nil {
		return errorBlock(path, err)
	}

	body = NormalizeLineEndings(body)
	if opts.LineNumbers {
		body = AddLineNumbers(body)
	}
	return fmt.Sprintf("--- BEGIN FILE: %s ---\n%s\n--- END FILE: %s ---", resolved, body, resolved)
}

// ReadFiles reads every path and concatenates the framed blocks,
// separated by blank lines.
func ReadFiles(paths []string, opts ReadOptions) string {
	blocks := make([]string, 0, len(paths))
	for _, p := range paths {
		blocks = append(blocks, ReadFile(p, opts))
	}
	return strings.Join(blocks, "\n\n")
}

func errorBlock(path string, err error) string {
	return fmt.Sprintf("--- ERROR READING FILE: %s ---\nError: %v\n--- END FILE ---", path, err)
}

// NormalizeLineEndings converts CRLF and lone CR to LF so that line
// numbering is stable across platforms.
func NormalizeLineEndings(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// AddLineNumbers prefixes each line with "NNNN│ ". Width grows with the
// line count but never drops below 4 digits.
func AddLineNumbers(content string) string {
	lines := strings.Split(content, "\n")

	width := len(fmt.Sprintf("%d", len(lines)))
	if width < 4 {
		width = 4
	}

	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%*d│ %s", width, i+1, line)
		if i < len(lines)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
