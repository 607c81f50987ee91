package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/scheduler"
	"github.com/gearbox-dev/gearbox/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RuleChannelLinkRequest struct {
	ChannelID      uint                   `json:"channel_id" binding:"required"`
	ConfigOverride map[string]interface{} `json:"config_override"`
}

type RuleRequest struct {
	Name            string                   `json:"name" binding:"required"`
	Module          string                   `json:"module"`
	Type            string                   `json:"type" binding:"required"` // "scheduled", "event", "condition"
	Schedule        map[string]interface{}   `json:"schedule"`
	EventName       string                   `json:"event_name"`
	Conditions      []models.Condition       `json:"conditions"`
	TitleTemplate   string                   `json:"title_template"`
	BodyTemplate    string                   `json:"body_template"`
	Priority        string                   `json:"priority"`
	CooldownSeconds int                      `json:"cooldown_seconds"`
	Enabled         *bool                    `json:"enabled"`
	Channels        []RuleChannelLinkRequest `json:"channels"`
}

type RuleSummary struct {
	ID              uint                   `json:"id"`
	Name            string                 `json:"name"`
	Module          string                 `json:"module"`
	Type            string                 `json:"type"`
	Schedule        map[string]interface{} `json:"schedule,omitempty"`
	EventName       string                 `json:"event_name,omitempty"`
	Conditions      []models.Condition     `json:"conditions"`
	TitleTemplate   string                 `json:"title_template"`
	BodyTemplate    string                 `json:"body_template"`
	Priority        string                 `json:"priority"`
	CooldownSeconds int                    `json:"cooldown_seconds"`
	LastFiredAt     *time.Time             `json:"last_fired_at"`
	Enabled         bool                   `json:"enabled"`
	ChannelIDs      []uint                 `json:"channel_ids"`
}

var validRuleTypes = map[string]bool{
	models.RuleTypeScheduled: true,
	models.RuleTypeEvent:     true,
	models.RuleTypeCondition: true,
}

var validPriorities = map[string]bool{
	models.PriorityLow:      true,
	models.PriorityNormal:   true,
	models.PriorityHigh:     true,
	models.PriorityCritical: true,
}

func ruleSummary(rule models.Rule) RuleSummary {
	var schedule map[string]interface{}

	if len(rule.Schedule) > 0 {
		_ = json.Unmarshal(rule.Schedule, &schedule)
	}

	channelIDs := make([]uint, len(rule.ChannelLinks))

	for i, link := range rule.ChannelLinks {
		channelIDs[i] = link.ChannelID
	}

	return RuleSummary{
		ID:              rule.ID,
		Name:            rule.Name,
		Module:          rule.Module,
		Type:            rule.Type,
		Schedule:        schedule,
		EventName:       rule.EventName,
		Conditions:      rule.ConditionList(),
		TitleTemplate:   rule.TitleTemplate,
		BodyTemplate:    rule.BodyTemplate,
		Priority:        rule.Priority,
		CooldownSeconds: rule.CooldownSeconds,
		LastFiredAt:     rule.LastFiredAt,
		Enabled:         rule.Enabled,
		ChannelIDs:      channelIDs,
	}
}

// buildRule validates the request and fills a rule model. Scheduled
// rules get their schedule parsed eagerly so a bad spec is rejected
// here instead of silently dropping the job at resync.
func buildRule(ctx *gin.Context, req RuleRequest, rule *models.Rule) bool {
	if !validRuleTypes[req.Type] {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule type"})
		return false
	}

	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}

	if !validPriorities[req.Priority] {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return false
	}

	if req.CooldownSeconds < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Cooldown must not be negative"})
		return false
	}

	var scheduleJSON []byte

	if req.Type == models.RuleTypeScheduled {
		var err error

		scheduleJSON, err = json.Marshal(req.Schedule)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule format"})
			return false
		}

		if _, err := scheduler.ParseSchedule(scheduleJSON); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return false
		}
	} else if req.EventName == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Event name is required for event and condition rules"})
		return false
	}

	conditionsJSON, err := json.Marshal(req.Conditions)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conditions format"})
		return false
	}

	rule.Name = req.Name
	rule.Module = req.Module
	rule.Type = req.Type
	rule.Schedule = scheduleJSON
	rule.EventName = req.EventName
	rule.Conditions = conditionsJSON
	rule.TitleTemplate = req.TitleTemplate
	rule.BodyTemplate = req.BodyTemplate
	rule.Priority = req.Priority
	rule.CooldownSeconds = req.CooldownSeconds
	rule.Enabled = true

	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	return true
}

func replaceLinks(tx *gorm.DB, rule *models.Rule, links []RuleChannelLinkRequest) error {
	if err := tx.Where("rule_id = ?", rule.ID).Delete(&models.RuleChannelLink{}).Error; err != nil {
		return err
	}

	for _, link := range links {
		override, err := json.Marshal(link.ConfigOverride)

		if err != nil {
			return err
		}

		newLink := models.RuleChannelLink{
			RuleID:         rule.ID,
			ChannelID:      link.ChannelID,
			ConfigOverride: override,
		}

		if err := tx.Create(&newLink).Error; err != nil {
			return err
		}
	}

	return nil
}

// resyncScheduler refreshes scheduled jobs after any rule CRUD.
func resyncScheduler() {
	if Sched == nil {
		return
	}

	if err := Sched.Resync(); err != nil {
		log.Printf("Scheduler resync failed: %v", err)
	}
}

func CreateRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req RuleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := models.Rule{UserID: userID}

	if !buildRule(ctx, req, &rule) {
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rule).Error; err != nil {
			return err
		}

		return replaceLinks(tx, &rule, req.Channels)
	})

	if err != nil {
		log.Printf("Failed to create rule: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create rule"})
		return
	}

	resyncScheduler()

	db.DB.Preload("ChannelLinks").First(&rule, rule.ID)
	ctx.JSON(http.StatusCreated, ruleSummary(rule))
}

func ListRules(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var rules []models.Rule

	if err := db.DB.Preload("ChannelLinks").Where("user_id = ?", userID).Order("id").Find(&rules).Error; err != nil {
		log.Printf("Failed to list rules: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rules"})
		return
	}

	summaries := make([]RuleSummary, len(rules))

	for i, rule := range rules {
		summaries[i] = ruleSummary(rule)
	}

	ctx.JSON(http.StatusOK, gin.H{"rules": summaries})
}

func UpdateRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ruleID, err := utils.ParamID(ctx, "rule_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var rule models.Rule

	if err := db.DB.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rule"})
		}
		return
	}

	var req RuleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !buildRule(ctx, req, &rule) {
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&rule).Error; err != nil {
			return err
		}

		return replaceLinks(tx, &rule, req.Channels)
	})

	if err != nil {
		log.Printf("Failed to update rule %d: %v", rule.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update rule"})
		return
	}

	resyncScheduler()

	db.DB.Preload("ChannelLinks").First(&rule, rule.ID)
	ctx.JSON(http.StatusOK, ruleSummary(rule))
}

func DeleteRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ruleID, err := utils.ParamID(ctx, "rule_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var rule models.Rule

	if err := db.DB.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rule"})
		}
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", rule.ID).Delete(&models.RuleChannelLink{}).Error; err != nil {
			return err
		}

		return tx.Unscoped().Delete(&rule).Error
	})

	if err != nil {
		log.Printf("Failed to delete rule %d: %v", rule.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
		return
	}

	resyncScheduler()

	ctx.JSON(http.StatusOK, gin.H{"message": "Rule deleted"})
}
