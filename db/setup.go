package db

import (
	"github.com/gearbox-dev/gearbox/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	models := []interface{}{
		&models.User{},
		&models.Vehicle{},
		&models.Channel{},
		&models.Rule{},
		&models.RuleChannelLink{},
		&models.NotificationLogEntry{},
		&models.Settings{},
		&models.ServiceInterval{},
	}

	migrator := DB.Migrator()

	for _, model := range models {
		if !migrator.HasTable(model) {
			if err := DB.AutoMigrate(model); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetOrCreateSettings loads the singleton settings row, creating it
// with defaults on first access.
func GetOrCreateSettings(conn *gorm.DB) (models.Settings, error) {
	var settings models.Settings

	defaults := models.Settings{
		BaseModel:       models.BaseModel{ID: 1},
		Enabled:         true,
		DefaultPriority: models.PriorityNormal,
		Timezone:        "UTC",
		RetentionDays:   90,
	}

	err := conn.Where("id = ?", 1).Attrs(defaults).FirstOrCreate(&settings).Error

	if err != nil {
		return models.Settings{}, err
	}

	return settings, nil
}
