package api

import (
	"context"
	"errors"
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/fetch"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/providers"
	"github.com/boardwalkhq/boardwalk/pkg/internal/services"
	"github.com/boardwalkhq/boardwalk/pkg/internal/subtitle"
	"github.com/boardwalkhq/boardwalk/pkg/internal/tokens"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ingestTimeout bounds one synchronous ingestion, discovery chain and
// download retries included.
const ingestTimeout = 5 * time.Minute

func getMeetingTranscript(c *fiber.Ctx) error {
	meetingID, err := c.ParamsInt("meetingId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "meeting id must be a number")
	}

	transcript, err := services.GetMeetingTranscript(uint(meetingID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no transcript has been ingested for this meeting")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	if c.Query("format") == "vtt" {
		cues := lo.Map(transcript.Utterances, func(utterance models.Utterance, _ int) subtitle.Cue {
			cue := subtitle.Cue{Start: utterance.Start, End: utterance.End, Text: utterance.Text}
			if utterance.SpeakerName != nil {
				cue.SpeakerName = *utterance.SpeakerName
			}
			if utterance.SpeakerEmail != nil {
				cue.SpeakerEmail = *utterance.SpeakerEmail
			}
			return cue
		})
		c.Set(fiber.HeaderContentType, "text/vtt; charset=utf-8")
		return c.SendString(subtitle.Serialize(cues))
	}

	return c.JSON(transcript)
}

func ingestMeetingTranscript(c *fiber.Ctx) error {
	meetingID, err := c.ParamsInt("meetingId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "meeting id must be a number")
	}

	ctx, cancel := context.WithTimeout(c.Context(), ingestTimeout)
	defer cancel()

	count, err := services.IngestTranscript(ctx, uint(meetingID))
	if err != nil {
		return translatePipelineError(err)
	}

	return c.JSON(fiber.Map{
		"utterances": count,
	})
}

// translatePipelineError maps the pipeline's error taxonomy onto HTTP
// statuses: missing things are 404, not-yet-ready things are 425, broken
// meeting setup is 422, provider-side trouble is 502.
func translatePipelineError(err error) error {
	var notFound *providers.NotFoundError
	var notReady *providers.NotReadyError
	var misconfigured *providers.ConfigurationError
	var unsupported *providers.UnsupportedProviderError
	var unauthorized *tokens.AuthError
	var upstream *fetch.StatusError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.NewError(fiber.StatusNotFound, "meeting was not found")
	case errors.As(err, &notFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.As(err, &notReady):
		return fiber.NewError(fiber.StatusTooEarly, err.Error())
	case errors.As(err, &misconfigured), errors.As(err, &unsupported):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &unauthorized), errors.As(err, &upstream):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
