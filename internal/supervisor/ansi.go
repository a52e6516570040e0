package supervisor

import "regexp"

// ansiPattern matches CSI escape sequences: ESC '[' parameter bytes, then the
// final letter.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// StripANSI removes terminal control sequences from agent output before it is
// parsed or forwarded.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
