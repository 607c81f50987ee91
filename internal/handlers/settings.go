package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gin-gonic/gin"
)

type SettingsRequest struct {
	Enabled           *bool  `json:"enabled"`
	DefaultPriority   string `json:"default_priority"`
	DefaultChannelIDs []uint `json:"default_channel_ids"`
	QuietHoursStart   string `json:"quiet_hours_start"`
	QuietHoursEnd     string `json:"quiet_hours_end"`
	Timezone          string `json:"timezone"`
	RetentionDays     *int   `json:"retention_days"`
}

type SettingsResponse struct {
	Enabled           bool   `json:"enabled"`
	DefaultPriority   string `json:"default_priority"`
	DefaultChannelIDs []uint `json:"default_channel_ids"`
	QuietHoursStart   string `json:"quiet_hours_start"`
	QuietHoursEnd     string `json:"quiet_hours_end"`
	Timezone          string `json:"timezone"`
	RetentionDays     int    `json:"retention_days"`
}

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func settingsResponse(settings models.Settings) SettingsResponse {
	return SettingsResponse{
		Enabled:           settings.Enabled,
		DefaultPriority:   settings.DefaultPriority,
		DefaultChannelIDs: settings.DefaultChannels(),
		QuietHoursStart:   settings.QuietHoursStart,
		QuietHoursEnd:     settings.QuietHoursEnd,
		Timezone:          settings.Timezone,
		RetentionDays:     settings.RetentionDays,
	}
}

func GetSettings(ctx *gin.Context) {
	settings, err := db.GetOrCreateSettings(db.DB)

	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	ctx.JSON(http.StatusOK, settingsResponse(settings))
}

func UpdateSettings(ctx *gin.Context) {
	var req SettingsRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := db.GetOrCreateSettings(db.DB)

	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}

	if req.DefaultPriority != "" {
		if !validPriorities[req.DefaultPriority] {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid default priority"})
			return
		}
		settings.DefaultPriority = req.DefaultPriority
	}

	if req.DefaultChannelIDs != nil {
		encoded, err := json.Marshal(req.DefaultChannelIDs)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid default channels"})
			return
		}

		settings.DefaultChannelIDs = encoded
	}

	// Quiet hours must be set or cleared as a pair of HH:MM strings.
	if (req.QuietHoursStart == "") != (req.QuietHoursEnd == "") {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Quiet hours start and end must both be set or both be empty"})
		return
	}

	if req.QuietHoursStart != "" {
		if !timeOfDay.MatchString(req.QuietHoursStart) || !timeOfDay.MatchString(req.QuietHoursEnd) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Quiet hours must be HH:MM"})
			return
		}
	}

	settings.QuietHoursStart = req.QuietHoursStart
	settings.QuietHoursEnd = req.QuietHoursEnd

	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timezone"})
			return
		}
		settings.Timezone = req.Timezone
	}

	if req.RetentionDays != nil {
		if *req.RetentionDays < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Retention days must not be negative"})
			return
		}
		settings.RetentionDays = *req.RetentionDays
	}

	if err := db.DB.Save(&settings).Error; err != nil {
		log.Printf("Failed to save settings: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	ctx.JSON(http.StatusOK, settingsResponse(settings))
}
