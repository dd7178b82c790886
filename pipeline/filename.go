package pipeline

import (
	"fmt"
	"regexp"
)

// unsafeChars matches everything not allowed in an output filename. Brackets
// and apostrophes stay because the final name encodes its sources as
// "[audio][video] title.mp4".
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.\-\[\]' ]+`)

// SanitizeFilename replaces unsafe filename characters with underscores
func SanitizeFilename(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// FinalFilename builds the sanitized deliverable name from the audio engine,
// video source and title
func FinalFilename(audioTech, videoTech, title string) string {
	return fmt.Sprintf("[%s][%s] %s.mp4",
		SanitizeFilename(audioTech),
		SanitizeFilename(videoTech),
		SanitizeFilename(title),
	)
}
