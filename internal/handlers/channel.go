package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ChannelRequest struct {
	Name    string                 `json:"name" binding:"required"`
	Type    string                 `json:"type" binding:"required"` // "in_app", "push", "chat_webhook", "email", "sms"
	Config  map[string]interface{} `json:"config"`
	Enabled *bool                  `json:"enabled"`
}

type ChannelSummary struct {
	ID      uint                   `json:"id"`
	Name    string                 `json:"name"`
	Type    string                 `json:"type"`
	Config  map[string]interface{} `json:"config"`
	Enabled bool                   `json:"enabled"`
}

func channelSummary(channel models.Channel) ChannelSummary {
	return ChannelSummary{
		ID:      channel.ID,
		Name:    channel.Name,
		Type:    channel.Type,
		Config:  channel.ConfigMap(),
		Enabled: channel.Enabled,
	}
}

// validateChannelRequest checks the type against the registry and the
// config against the type's schema. Validation failures are rejected
// synchronously; invalid channels are never stored.
func validateChannelRequest(ctx *gin.Context, req ChannelRequest) bool {
	handler, err := Registry.Get(req.Type)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	if errs := handler.ValidateConfig(req.Config); len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel config", "details": messages})
		return false
	}

	return true
}

func CreateChannel(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ChannelRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validateChannelRequest(ctx, req) {
		return
	}

	configJSON, err := json.Marshal(req.Config)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config format"})
		return
	}

	channel := models.Channel{
		UserID:  userID,
		Name:    req.Name,
		Type:    req.Type,
		Config:  configJSON,
		Enabled: true,
	}

	if req.Enabled != nil {
		channel.Enabled = *req.Enabled
	}

	if err := db.DB.Create(&channel).Error; err != nil {
		log.Printf("Failed to create channel: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create channel"})
		return
	}

	ctx.JSON(http.StatusCreated, channelSummary(channel))
}

func ListChannels(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var channelList []models.Channel

	if err := db.DB.Where("user_id = ?", userID).Order("id").Find(&channelList).Error; err != nil {
		log.Printf("Failed to list channels: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve channels"})
		return
	}

	summaries := make([]ChannelSummary, len(channelList))

	for i, channel := range channelList {
		summaries[i] = channelSummary(channel)
	}

	ctx.JSON(http.StatusOK, gin.H{"channels": summaries})
}

// ListChannelSchemas exposes the declarative config field list per
// registered channel type, consumed by the settings UI.
func ListChannelSchemas(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"schemas": Registry.Schemas()})
}

func UpdateChannel(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	channelID, err := utils.ParamID(ctx, "channel_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var channel models.Channel

	if err := db.DB.Where("id = ? AND user_id = ?", channelID, userID).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve channel"})
		}
		return
	}

	var req ChannelRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validateChannelRequest(ctx, req) {
		return
	}

	configJSON, err := json.Marshal(req.Config)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config format"})
		return
	}

	channel.Name = req.Name
	channel.Type = req.Type
	channel.Config = configJSON

	if req.Enabled != nil {
		channel.Enabled = *req.Enabled
	}

	if err := db.DB.Save(&channel).Error; err != nil {
		log.Printf("Failed to update channel %d: %v", channel.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update channel"})
		return
	}

	ctx.JSON(http.StatusOK, channelSummary(channel))
}

// DeleteChannel removes the channel and its rule links. Log rows keep
// their channel-type snapshot and get a nulled channel id, so history
// is preserved.
func DeleteChannel(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	channelID, err := utils.ParamID(ctx, "channel_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var channel models.Channel

	if err := db.DB.Where("id = ? AND user_id = ?", channelID, userID).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve channel"})
		}
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", channel.ID).Delete(&models.RuleChannelLink{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.NotificationLogEntry{}).Where("channel_id = ?", channel.ID).
			Update("channel_id", nil).Error; err != nil {
			return err
		}

		return tx.Unscoped().Delete(&channel).Error
	})

	if err != nil {
		log.Printf("Failed to delete channel %d: %v", channel.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete channel"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Channel deleted"})
}
