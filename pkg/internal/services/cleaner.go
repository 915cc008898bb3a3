package services

import (
	"context"
	"errors"
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/database"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/providers"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// DoAutoDatabaseCleanup permanently removes rows that were soft deleted more
// than 30 days ago.
func DoAutoDatabaseCleanup() {
	deadline := time.Now().Add(-30 * 24 * time.Hour)
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up entire database...")

	var count int64
	for _, model := range database.AutoMaintainRange {
		tx := database.C.Unscoped().Delete(model, "deleted_at < ?", deadline)
		if tx.Error != nil {
			log.Error().Err(tx.Error).Msg("An error occurred when running auto maintenance...")
			continue
		}
		count += tx.RowsAffected
	}

	log.Debug().Int64("affected", count).Msg("Clean up entire database accomplished.")
}

// DoPendingTranscriptSweep re-attempts ingestion for meetings that ended
// within the sweep window but still have no transcript, catching meetings
// whose webhook notification was lost or arrived before the provider
// finished processing.
func DoPendingTranscriptSweep() {
	window := viper.GetInt("pipeline.sweep_window_hours")
	if window <= 0 {
		window = 12
	}
	threshold := time.Now().Add(-time.Duration(window) * time.Hour)

	var meetings []models.Meeting
	if err := database.C.
		Where("scheduled_at >= ?", threshold).
		Where("id NOT IN (?)", database.C.Model(&models.Transcript{}).Select("meeting_id")).
		Find(&meetings).Error; err != nil {
		log.Error().Err(err).Msg("An error occurred when listing meetings pending transcripts...")
		return
	}

	now := time.Now()
	meetings = lo.Filter(meetings, func(meeting models.Meeting, _ int) bool {
		return !meeting.EndedAt().After(now)
	})

	for _, meeting := range meetings {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		_, err := IngestTranscript(ctx, meeting.ID)
		cancel()
		if err == nil {
			continue
		}

		var notReady *providers.NotReadyError
		if errors.As(err, &notReady) {
			log.Debug().Uint("meeting", meeting.ID).Str("hint", notReady.Hint).
				Msg("Transcript of a swept meeting is not ready yet, will retry on the next sweep...")
		} else {
			log.Warn().Err(err).Uint("meeting", meeting.ID).
				Msg("An error occurred when sweeping a meeting for its transcript...")
		}
	}
}
