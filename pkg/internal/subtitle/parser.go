package subtitle

import (
	"regexp"
	"strings"
	"time"
)

// Cue is one timestamped subtitle entry. Start and End are offsets from the
// beginning of the track.
type Cue struct {
	Start        time.Duration `json:"start"`
	End          time.Duration `json:"end"`
	Text         string        `json:"text"`
	SpeakerName  string        `json:"speaker_name"`
	SpeakerEmail string        `json:"speaker_email"`
}

// timingLineRe matches cue timing lines like "00:01:23.456 --> 00:01:25.000",
// with optional settings after the second timestamp.
var timingLineRe = regexp.MustCompile(`^(\d{2,}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2,}:\d{2}:\d{2}\.\d{3})`)

// speakerPrefixRe splits an optional "Name: " or "Name <email>: " prefix off
// the cue text. The colon must be followed by whitespace so URLs and plain
// timestamps inside the text are left alone.
var speakerPrefixRe = regexp.MustCompile(`^([^:<>]{1,100}?)(?:\s*<([^<>\s]+@[^<>\s]+)>)?:\s+(.+)$`)

// metadataLineRe matches track-level metadata lines that may precede cues.
var metadataLineRe = regexp.MustCompile(`^(WEBVTT|Kind|Language|NOTE)\b`)

// Parse turns a raw subtitle track into an ordered cue sequence. A malformed
// block is skipped on its own; it never aborts the rest of the parse.
func Parse(raw string) []Cue {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var cues []Cue
	for _, block := range strings.Split(raw, "\n\n") {
		if cue, ok := parseBlock(block); ok {
			cues = append(cues, cue)
		}
	}

	return cues
}

func parseBlock(block string) (Cue, bool) {
	var cue Cue

	lines := strings.Split(block, "\n")
	timingAt := -1
	for idx, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) == 0 || metadataLineRe.MatchString(line) {
			continue
		}

		match := timingLineRe.FindStringSubmatch(line)
		if match == nil {
			// A bare cue identifier may precede the timing line; anything
			// else before it makes the block malformed.
			if timingAt < 0 && idx == 0 {
				continue
			}
			if timingAt < 0 {
				return cue, false
			}
			continue
		}

		start, okStart := parseTimestamp(match[1])
		end, okEnd := parseTimestamp(match[2])
		if !okStart || !okEnd || end < start {
			return cue, false
		}

		cue.Start, cue.End = start, end
		timingAt = idx
		break
	}

	if timingAt < 0 || timingAt+1 >= len(lines) {
		return cue, false
	}

	text := strings.TrimSpace(strings.Join(lines[timingAt+1:], "\n"))
	if len(text) == 0 {
		return cue, false
	}

	if match := speakerPrefixRe.FindStringSubmatch(text); match != nil {
		cue.SpeakerName = strings.TrimSpace(match[1])
		cue.SpeakerEmail = match[2]
		text = match[3]
	}

	cue.Text = text
	return cue, true
}

// parseTimestamp parses "HH:MM:SS.mmm" (hours may exceed two digits).
func parseTimestamp(ts string) (time.Duration, bool) {
	dot := strings.IndexByte(ts, '.')
	if dot < 0 || len(ts) != dot+4 {
		return 0, false
	}

	parts := strings.Split(ts[:dot], ":")
	if len(parts) != 3 {
		return 0, false
	}

	h, ok1 := atoi(parts[0])
	m, ok2 := atoi(parts[1])
	s, ok3 := atoi(parts[2])
	ms, ok4 := atoi(ts[dot+1:])
	if !ok1 || !ok2 || !ok3 || !ok4 || m > 59 || s > 59 {
		return 0, false
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, true
}

func atoi(s string) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
