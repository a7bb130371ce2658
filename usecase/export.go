package usecase

import "strings"

// ExportFilename is the suggested filename for the text download.
const ExportFilename = "speech-text.txt"

// ExportText serializes the console's text buffer for a client-side download.
// Empty (or whitespace-only) text is rejected; the page additionally disables
// the download button in that case.
func ExportText(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	return []byte(text), nil
}
