package parser

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// fenceRegex matches a fence delimiter line: up to three spaces of
// indentation, a run of at least three backticks or tildes, and the info string.
var fenceRegex = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})(.*)$")

// FenceScan summarises the fence delimiters of a document.
type FenceScan struct {
	// Count is the number of fence delimiter lines, openers and closers.
	Count int
	// UnclosedLine is the 1-based line of an opener that is never closed, or 0.
	UnclosedLine int
}

// Matched reports whether every opening fence has a closing fence.
func (s FenceScan) Matched() bool {
	return s.UnclosedLine == 0 && s.Count%2 == 0
}

// ScanFences counts fence delimiters line by line. A closer must use the same
// character as its opener, be at least as long, and carry no info string.
func ScanFences(source []byte) FenceScan {
	var (
		scan     FenceScan
		open     string
		openLine int
		lineNo   int
	)

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), len(source)+1)
	for scanner.Scan() {
		lineNo++
		match := fenceRegex.FindStringSubmatch(strings.TrimRight(scanner.Text(), "\r"))
		if match == nil {
			continue
		}
		delim, info := match[1], strings.TrimSpace(match[2])

		if open == "" {
			// Backtick fences may not carry backticks in their info string.
			if delim[0] == '`' && strings.Contains(info, "`") {
				continue
			}
			open, openLine = delim, lineNo
			scan.Count++
			continue
		}

		if delim[0] == open[0] && len(delim) >= len(open) && info == "" {
			open, openLine = "", 0
			scan.Count++
		}
	}

	scan.UnclosedLine = openLine
	return scan
}
