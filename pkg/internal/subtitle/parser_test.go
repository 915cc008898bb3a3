package subtitle_test

import (
	"testing"
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/subtitle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicTrack(t *testing.T) {
	raw := "WEBVTT\n" +
		"\n" +
		"00:00:01.000 --> 00:00:03.500\n" +
		"Alice Smith <alice@example.com>: Good morning everyone.\n" +
		"\n" +
		"00:00:04.000 --> 00:00:06.000\n" +
		"Bob: Morning!\n" +
		"\n" +
		"00:00:07.250 --> 00:00:09.000\n" +
		"Let's get started.\n"

	cues := subtitle.Parse(raw)
	require.Len(t, cues, 3)

	assert.Equal(t, time.Second, cues[0].Start)
	assert.Equal(t, 3500*time.Millisecond, cues[0].End)
	assert.Equal(t, "Alice Smith", cues[0].SpeakerName)
	assert.Equal(t, "alice@example.com", cues[0].SpeakerEmail)
	assert.Equal(t, "Good morning everyone.", cues[0].Text)

	assert.Equal(t, "Bob", cues[1].SpeakerName)
	assert.Empty(t, cues[1].SpeakerEmail)
	assert.Equal(t, "Morning!", cues[1].Text)

	assert.Empty(t, cues[2].SpeakerName)
	assert.Equal(t, "Let's get started.", cues[2].Text)
}

func TestParseCarriageReturnsAndIdentifiers(t *testing.T) {
	raw := "WEBVTT\r\n" +
		"\r\n" +
		"42\r\n" +
		"00:00:01.000 --> 00:00:02.000\r\n" +
		"Hello there.\r\n"

	cues := subtitle.Parse(raw)
	require.Len(t, cues, 1)
	assert.Equal(t, "Hello there.", cues[0].Text)
}

func TestParseSkipsMalformedBlocks(t *testing.T) {
	raw := "WEBVTT\n" +
		"\n" +
		"00:00:01.000 --> 00:00:02.000\n" +
		"First cue.\n" +
		"\n" +
		"00:00:05.000 --> 00:00:03.000\n" +
		"End precedes start, dropped.\n" +
		"\n" +
		"not a timing line at all\n" +
		"also not one\n" +
		"\n" +
		"00:00:06.000 --> 00:00:07.000\n" +
		"\n" +
		"00:00:08.000 --> 00:00:09.000\n" +
		"Last cue survives.\n"

	cues := subtitle.Parse(raw)
	require.Len(t, cues, 2)
	assert.Equal(t, "First cue.", cues[0].Text)
	assert.Equal(t, "Last cue survives.", cues[1].Text)
}

func TestParseLeavesURLsAlone(t *testing.T) {
	raw := "WEBVTT\n" +
		"\n" +
		"00:00:01.000 --> 00:00:02.000\n" +
		"See https://example.com/page for details.\n"

	cues := subtitle.Parse(raw)
	require.Len(t, cues, 1)
	assert.Empty(t, cues[0].SpeakerName)
	assert.Equal(t, "See https://example.com/page for details.", cues[0].Text)
}

func TestParseLongRecordingTimestamps(t *testing.T) {
	raw := "WEBVTT\n" +
		"\n" +
		"101:02:03.004 --> 101:02:04.000\n" +
		"Marathon session.\n"

	cues := subtitle.Parse(raw)
	require.Len(t, cues, 1)
	assert.Equal(t, 101*time.Hour+2*time.Minute+3*time.Second+4*time.Millisecond, cues[0].Start)
}

func TestParseMultilineCueText(t *testing.T) {
	raw := "WEBVTT\n" +
		"\n" +
		"00:00:01.000 --> 00:00:04.000\n" +
		"Carol: This spans\n" +
		"two lines.\n"

	cues := subtitle.Parse(raw)
	require.Len(t, cues, 1)
	assert.Equal(t, "Carol", cues[0].SpeakerName)
	assert.Equal(t, "This spans\ntwo lines.", cues[0].Text)
}

func TestSerializeRoundTrip(t *testing.T) {
	cues := []subtitle.Cue{
		{Start: time.Second, End: 2 * time.Second, Text: "Hello.", SpeakerName: "Alice", SpeakerEmail: "alice@example.com"},
		{Start: 3 * time.Second, End: 4 * time.Second, Text: "Hi.", SpeakerName: "Bob"},
		{Start: 5 * time.Second, End: 6 * time.Second, Text: "No speaker here."},
	}

	parsed := subtitle.Parse(subtitle.Serialize(cues))
	require.Equal(t, cues, parsed)
}
