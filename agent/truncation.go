package agent

import "fmt"

// ClipChars bounds s at maxChars, appending a marker that names how many
// characters were dropped. The marker matches the one the file toolkit
// uses so the model sees one truncation convention everywhere.
func ClipChars(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	dropped := len(s) - maxChars
	return s[:maxChars] + fmt.Sprintf("\n...[truncated %d chars]", dropped)
}
