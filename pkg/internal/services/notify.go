package services

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/providers"
	"github.com/boardwalkhq/boardwalk/pkg/internal/subtitle"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

// notifyPreviewLimit caps how many utterances the mail body quotes; the full
// track rides along as an attachment.
const notifyPreviewLimit = 10

// NotifyTranscriptIngested mails every attendee with a known address that a
// transcript landed, quoting the first utterances and attaching the
// reconstructed subtitle track. A delivery failure never rolls back the
// ingestion; the caller logs it and moves on. Returns nil when no mailer or
// no recipient is configured.
func NotifyTranscriptIngested(meeting models.Meeting, transcript models.Transcript) error {
	host := viper.GetString("mailer.host")
	if len(host) == 0 {
		return nil
	}

	recipients := lo.Uniq(lo.FilterMap(meeting.Attendees, func(attendee models.Attendee, _ int) (string, bool) {
		if attendee.Email == nil || len(*attendee.Email) == 0 {
			return "", false
		}
		return *attendee.Email, true
	}))
	if len(recipients) == 0 {
		return nil
	}

	mail := gomail.NewMessage()
	mail.SetHeader("Message-Id", fmt.Sprintf("<%s@boardwalk>", uuid.New().String()))
	mail.SetHeader("From", viper.GetString("mailer.from"))
	mail.SetHeader("To", recipients...)
	mail.SetHeader("Subject", fmt.Sprintf("Transcript ready: %s", meeting.Title))
	mail.SetBody("text/html", renderNotifyBody(meeting, transcript))
	mail.Attach("transcript.vtt", gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, subtitle.Serialize(utteranceCues(transcript.Utterances)))
		return err
	}))

	dialer := gomail.NewDialer(
		host,
		viper.GetInt("mailer.port"),
		viper.GetString("mailer.username"),
		viper.GetString("mailer.password"),
	)
	if err := dialer.DialAndSend(mail); err != nil {
		return &providers.DeliveryError{Err: err}
	}

	return nil
}

func renderNotifyBody(meeting models.Meeting, transcript models.Transcript) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p>The transcript of <b>%s</b> has been ingested with %d utterances.</p>",
		html.EscapeString(meeting.Title), len(transcript.Utterances))

	sb.WriteString("<blockquote>")
	for idx, utterance := range transcript.Utterances {
		if idx >= notifyPreviewLimit {
			sb.WriteString("&hellip;<br>")
			break
		}
		if utterance.SpeakerName != nil {
			fmt.Fprintf(&sb, "<b>%s:</b> ", html.EscapeString(*utterance.SpeakerName))
		}
		sb.WriteString(html.EscapeString(utterance.Text))
		sb.WriteString("<br>")
	}
	sb.WriteString("</blockquote>")

	sb.WriteString("<p>The full subtitle track is attached.</p>")
	return sb.String()
}

func utteranceCues(utterances []models.Utterance) []subtitle.Cue {
	return lo.Map(utterances, func(utterance models.Utterance, _ int) subtitle.Cue {
		cue := subtitle.Cue{Start: utterance.Start, End: utterance.End, Text: utterance.Text}
		if utterance.SpeakerName != nil {
			cue.SpeakerName = *utterance.SpeakerName
		}
		if utterance.SpeakerEmail != nil {
			cue.SpeakerEmail = *utterance.SpeakerEmail
		}
		return cue
	})
}
