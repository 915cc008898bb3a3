package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// Serialize renders cues back into the blank-line-separated cue-block format,
// prefixing the text with "Name <email>: " where a speaker is known.
func Serialize(cues []Cue) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n")

	for _, cue := range cues {
		sb.WriteString("\n")
		sb.WriteString(formatTimestamp(cue.Start))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(cue.End))
		sb.WriteString("\n")

		if len(cue.SpeakerName) > 0 && len(cue.SpeakerEmail) > 0 {
			fmt.Fprintf(&sb, "%s <%s>: ", cue.SpeakerName, cue.SpeakerEmail)
		} else if len(cue.SpeakerName) > 0 {
			sb.WriteString(cue.SpeakerName)
			sb.WriteString(": ")
		}

		sb.WriteString(cue.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
