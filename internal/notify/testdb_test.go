package notify

import (
	"testing"

	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = conn.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Channel{},
		&models.Rule{},
		&models.RuleChannelLink{},
		&models.NotificationLogEntry{},
		&models.Settings{},
		&models.ServiceInterval{},
	)

	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return conn
}

func seedUser(t *testing.T, conn *gorm.DB) models.User {
	t.Helper()

	user := models.User{Name: "Alex", Email: "alex@example.com", PasswordHash: "hashed"}

	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	return user
}

func seedChannel(t *testing.T, conn *gorm.DB, userID uint, channelType string) models.Channel {
	t.Helper()

	ch := models.Channel{UserID: userID, Name: channelType + " channel", Type: channelType, Enabled: true}

	if err := conn.Create(&ch).Error; err != nil {
		t.Fatalf("failed to seed channel: %v", err)
	}

	return ch
}
