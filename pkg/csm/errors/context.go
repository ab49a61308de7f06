package errors

import (
	"fmt"
	"strings"
)

// BlockContext renders raw block lines with their input line numbers.
// lineNumbers[i] is the line number of lines[i]; the line equal to errLine is
// marked with an arrow. Pass errLine <= 0 to mark nothing.
func BlockContext(lines []string, lineNumbers []int, errLine int) string {
	if len(lines) == 0 {
		return ""
	}

	width := 1
	if n := len(lineNumbers); n > 0 {
		width = len(fmt.Sprintf("%d", lineNumbers[n-1]))
	}

	var sb strings.Builder
	for i, line := range lines {
		num := 0
		if i < len(lineNumbers) {
			num = lineNumbers[i]
		}

		prefix := "  "
		if errLine > 0 && num == errLine {
			prefix = "->"
		}
		fmt.Fprintf(&sb, "%s %*d | %s\n", prefix, width, num, line)
	}

	return sb.String()
}

// WithContext attaches a rendered block dump to err and returns it.
func WithContext(err *Error, lines []string, lineNumbers []int) *Error {
	err.Context = BlockContext(lines, lineNumbers, err.Location.Line)
	return err
}
