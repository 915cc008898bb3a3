package services

import (
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/database"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func GetMeetingTranscript(meetingID uint) (models.Transcript, error) {
	var transcript models.Transcript
	if err := database.C.
		Preload("Utterances", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Where("meeting_id = ?", meetingID).
		First(&transcript).Error; err != nil {
		return transcript, err
	}
	return transcript, nil
}

// UpsertTranscript stores a freshly ingested transcript. One transcript
// exists per (meeting, provider): re-ingesting updates the row in place and
// wholly replaces its utterances, so a retried or duplicated ingestion can
// never leave two copies behind.
func UpsertTranscript(meetingID uint, provider models.MeetingProvider, providerTranscriptID string, meta map[string]any, utterances []models.Utterance) (models.Transcript, error) {
	var transcript models.Transcript

	err := database.C.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("meeting_id = ? AND provider = ?", meetingID, provider).
			First(&transcript).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}

		transcript.MeetingID = meetingID
		transcript.Provider = provider
		transcript.ProviderTranscriptID = providerTranscriptID
		transcript.IngestedAt = time.Now()
		transcript.ProviderMeta = datatypes.JSONMap(meta)

		if transcript.ID > 0 {
			if err := tx.Unscoped().
				Where("transcript_id = ?", transcript.ID).
				Delete(&models.Utterance{}).Error; err != nil {
				return err
			}
			if err := tx.Save(&transcript).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&transcript).Error; err != nil {
			return err
		}

		if len(utterances) == 0 {
			return nil
		}
		for idx := range utterances {
			utterances[idx].TranscriptID = transcript.ID
		}
		return tx.Create(&utterances).Error
	})
	if err != nil {
		return transcript, err
	}

	transcript.Utterances = utterances
	return transcript, nil
}
