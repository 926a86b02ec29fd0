package pipeline

import (
	"bytes"
	"regexp"
)

// utf8BOM is stripped from the start of source files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Trailing whitespace at end of file
	trailingSpace = regexp.MustCompile(`[ \t\n]+$`)
)

// normalizeSource prepares raw file content for parsing.
// Output never contains \r and never starts with a byte order mark.
func normalizeSource(content []byte) []byte {
	content = bytes.TrimPrefix(content, utf8BOM)
	return normalizeLineEndings(content)
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content []byte) []byte {
	if !bytes.ContainsRune(content, '\r') {
		return content
	}
	return crlfOrCR.ReplaceAll(content, []byte("\n"))
}

// trimTrailingSpace removes trailing blank lines and spaces.
func trimTrailingSpace(content []byte) []byte {
	return trailingSpace.ReplaceAll(content, nil)
}
