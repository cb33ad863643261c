// Package source implements the markdown-fence-aware ingestion step: a
// literate Lambo file interleaves prose with fenced code blocks, and only
// the code inside those fences is fed to the lexer.
package source

import (
	"path/filepath"
	"regexp"
	"strings"
)

var fence = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")

// Extract returns the source text to parse from raw file content. If
// path's extension suggests markdown, only the contents of fenced code
// blocks are kept, concatenated in document order; otherwise raw is
// returned unchanged.
func Extract(path, raw string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
	default:
		return raw
	}

	matches := fence.FindAllStringSubmatch(raw, -1)
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(m[1])
		sb.WriteString("\n")
	}
	return sb.String()
}
