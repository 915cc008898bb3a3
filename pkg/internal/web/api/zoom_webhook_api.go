package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// zoomReplayWindow is how far a signed request's timestamp may drift from
// the server clock before it is rejected as a replay.
const zoomReplayWindow = 5 * time.Minute

// zoomNow is overridable in tests to pin the replay-window check.
var zoomNow = time.Now

func receiveZoomEvent(c *fiber.Ctx) error {
	if err := verifyZoomSignature(c); err != nil {
		return err
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			PlainToken string `json:"plainToken"`
			Object     struct {
				ID   json.Number `json:"id"`
				UUID string      `json:"uuid"`
			} `json:"object"`
		} `json:"payload"`
	}
	if err := jsoniter.Unmarshal(c.Body(), &event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	switch event.Event {
	case "endpoint.url_validation":
		mac := hmac.New(sha256.New, []byte(viper.GetString("zoom.webhook_secret")))
		mac.Write([]byte(event.Payload.PlainToken))
		return c.JSON(fiber.Map{
			"plainToken":     event.Payload.PlainToken,
			"encryptedToken": hex.EncodeToString(mac.Sum(nil)),
		})

	case "recording.completed", "recording.transcript_completed":
		meeting, ok := services.FindMeetingByProviderIDs(
			models.MeetingProviderZoom,
			event.Payload.Object.ID.String(),
			event.Payload.Object.UUID,
		)
		if !ok {
			log.Warn().Str("id", event.Payload.Object.ID.String()).Str("uuid", event.Payload.Object.UUID).
				Msg("Could not match a recording event to any stored meeting...")
			return c.SendStatus(fiber.StatusOK)
		}

		go func(meetingID uint) {
			ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
			defer cancel()
			if _, err := services.IngestTranscript(ctx, meetingID); err != nil {
				log.Warn().Err(err).Uint("meeting", meetingID).
					Msg("An error occurred when ingesting a notified transcript...")
			}
		}(meeting.ID)

	default:
		log.Debug().Str("event", event.Event).Msg("Skipping an unhandled provider event...")
	}

	return c.SendStatus(fiber.StatusOK)
}

// verifyZoomSignature checks the signed-request headers on every incoming
// event, the URL-validation challenge included: the timestamp must sit
// within the replay window and the signature must be the HMAC-SHA256 of
// "v0:{timestamp}:{body}" under the shared webhook secret.
func verifyZoomSignature(c *fiber.Ctx) error {
	secret := viper.GetString("zoom.webhook_secret")
	timestamp := c.Get("X-Zm-Request-Timestamp")
	signature := c.Get("X-Zm-Signature")
	if len(secret) == 0 || len(timestamp) == 0 || len(signature) == 0 {
		return fiber.NewError(fiber.StatusUnauthorized, "request is not signed")
	}

	issued, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "malformed request timestamp")
	}
	drift := zoomNow().Sub(time.Unix(issued, 0))
	if drift > zoomReplayWindow || drift < -zoomReplayWindow {
		return fiber.NewError(fiber.StatusUnauthorized, "request timestamp is outside the replay window")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, c.Body())
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fiber.NewError(fiber.StatusUnauthorized, "request signature mismatch")
	}

	return nil
}
