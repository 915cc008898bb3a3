package database

import (
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Meeting{},
	&models.Attendee{},
	&models.Transcript{},
	&models.Utterance{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
