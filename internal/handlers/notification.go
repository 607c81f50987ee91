package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type NotificationSummary struct {
	ID          uint      `json:"id"`
	RuleID      *uint     `json:"rule_id"`
	ChannelID   *uint     `json:"channel_id"`
	ChannelType string    `json:"channel_type"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListNotifications is the paginated log read surface, filterable by
// status, channel type, priority, rule and read state.
func ListNotifications(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "50"))

	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	query := db.DB.Model(&models.NotificationLogEntry{}).Where("user_id = ?", userID)

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if channelType := ctx.Query("channel_type"); channelType != "" {
		query = query.Where("channel_type = ?", channelType)
	}

	if priority := ctx.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}

	if ruleID := ctx.Query("rule_id"); ruleID != "" {
		query = query.Where("rule_id = ?", ruleID)
	}

	if unread := ctx.Query("unread"); unread == "true" {
		query = query.Where("read = ?", false)
	}

	var total int64

	if err := query.Count(&total).Error; err != nil {
		log.Printf("Failed to count notifications: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}

	var entries []models.NotificationLogEntry

	err = query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error

	if err != nil {
		log.Printf("Failed to list notifications: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}

	summaries := make([]NotificationSummary, len(entries))

	for i, entry := range entries {
		summaries[i] = NotificationSummary{
			ID:          entry.ID,
			RuleID:      entry.RuleID,
			ChannelID:   entry.ChannelID,
			ChannelType: entry.ChannelType,
			Title:       entry.Title,
			Body:        entry.Body,
			Priority:    entry.Priority,
			Status:      entry.Status,
			Error:       entry.ErrorMessage,
			DurationMs:  entry.DurationMs,
			Read:        entry.Read,
			CreatedAt:   entry.CreatedAt,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"notifications": summaries,
		"total":         total,
		"page":          page,
		"page_size":     pageSize,
	})
}

// UnreadCount serves the in-app feed badge.
func UnreadCount(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var count int64

	err = db.DB.Model(&models.NotificationLogEntry{}).
		Where("user_id = ? AND channel_type = ? AND read = ?", userID, models.ChannelInApp, false).
		Count(&count).Error

	if err != nil {
		log.Printf("Failed to count unread notifications: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead flips the read state of one log row, the only mutation log
// rows allow after being written.
func MarkRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	entryID, err := utils.ParamID(ctx, "notification_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var entry models.NotificationLogEntry

	if err := db.DB.Where("id = ? AND user_id = ?", entryID, userID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notification"})
		}
		return
	}

	if err := db.DB.Model(&entry).Updates(readUpdates(entry)).Error; err != nil {
		log.Printf("Failed to mark notification %d read: %v", entry.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

func MarkAllRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	now := time.Now()

	err = db.DB.Model(&models.NotificationLogEntry{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error

	if err != nil {
		log.Printf("Failed to mark notifications read: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications read"})
		return
	}

	err = db.DB.Model(&models.NotificationLogEntry{}).
		Where("user_id = ? AND channel_type = ? AND status = ?", userID, models.ChannelInApp, models.StatusSent).
		Update("status", models.StatusRead).Error

	if err != nil {
		log.Printf("Failed to update notification statuses: %v", err)
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
}

func readUpdates(entry models.NotificationLogEntry) map[string]interface{} {
	now := time.Now()
	updates := map[string]interface{}{"read": true, "read_at": now}

	// "read" is a delivery status only for the in-app feed.
	if entry.ChannelType == models.ChannelInApp && entry.Status == models.StatusSent {
		updates["status"] = models.StatusRead
	}

	return updates
}
