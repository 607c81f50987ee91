package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/intervals"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type IntervalRequest struct {
	Name                   string    `json:"name" binding:"required"`
	MilesInterval          float64   `json:"miles_interval"`
	MonthsInterval         int       `json:"months_interval"`
	ConditionType          string    `json:"condition_type"`
	NotifyMilesThresholds  []float64 `json:"notify_miles_thresholds"`
	NotifyMonthsThresholds []int     `json:"notify_months_thresholds"`
	Enabled                *bool     `json:"enabled"`
	ChannelIDs             []uint    `json:"channel_ids"`
	Priority               string    `json:"priority"`
	TitleTemplate          string    `json:"title_template"`
	BodyTemplate           string    `json:"body_template"`
	TimingMode             string    `json:"timing_mode"`
}

type RecordServiceRequest struct {
	Date    string  `json:"date"` // RFC 3339, defaults to now
	Mileage float64 `json:"mileage" binding:"required"`
}

type IntervalSummary struct {
	ID             uint                 `json:"id"`
	Name           string               `json:"name"`
	MilesInterval  float64              `json:"miles_interval"`
	MonthsInterval int                  `json:"months_interval"`
	ConditionType  string               `json:"condition_type"`
	Enabled        bool                 `json:"enabled"`
	TimingMode     string               `json:"timing_mode"`
	Status         intervals.Status     `json:"status"`
	Notified       models.NotifiedState `json:"notified"`
}

func intervalSummary(si models.ServiceInterval, vehicle models.Vehicle) IntervalSummary {
	return IntervalSummary{
		ID:             si.ID,
		Name:           si.Name,
		MilesInterval:  si.MilesInterval,
		MonthsInterval: si.MonthsInterval,
		ConditionType:  si.ConditionType,
		Enabled:        si.Enabled,
		TimingMode:     si.TimingMode,
		Status:         intervals.ComputeStatus(si, vehicle.CurrentOdometer, time.Now()),
		Notified:       si.NotifiedState(),
	}
}

func buildInterval(ctx *gin.Context, req IntervalRequest, si *models.ServiceInterval) bool {
	if req.MilesInterval <= 0 && req.MonthsInterval <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "At least one of miles_interval or months_interval is required"})
		return false
	}

	conditionType := req.ConditionType

	if conditionType == "" {
		conditionType = models.IntervalConditionOr
	}

	if conditionType != models.IntervalConditionOr && conditionType != models.IntervalConditionAnd {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "condition_type must be \"or\" or \"and\""})
		return false
	}

	timingMode := req.TimingMode

	if timingMode == "" {
		timingMode = models.TimingImmediate
	}

	if timingMode != models.TimingImmediate && timingMode != models.TimingScheduled {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "timing_mode must be \"immediate\" or \"scheduled\""})
		return false
	}

	if req.Priority != "" && !validPriorities[req.Priority] {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return false
	}

	milesThresholds, err := json.Marshal(req.NotifyMilesThresholds)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid miles thresholds"})
		return false
	}

	monthsThresholds, err := json.Marshal(req.NotifyMonthsThresholds)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid months thresholds"})
		return false
	}

	channelIDs, err := json.Marshal(req.ChannelIDs)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel ids"})
		return false
	}

	si.Name = req.Name
	si.MilesInterval = req.MilesInterval
	si.MonthsInterval = req.MonthsInterval
	si.ConditionType = conditionType
	si.NotifyMilesThresholds = milesThresholds
	si.NotifyMonthsThresholds = monthsThresholds
	si.ChannelIDs = channelIDs
	si.Priority = req.Priority
	si.TitleTemplate = req.TitleTemplate
	si.BodyTemplate = req.BodyTemplate
	si.TimingMode = timingMode
	si.Enabled = true

	if req.Enabled != nil {
		si.Enabled = *req.Enabled
	}

	return true
}

func CreateInterval(ctx *gin.Context) {
	vehicle, ok := currentVehicle(ctx)

	if !ok {
		return
	}

	var req IntervalRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	si := models.ServiceInterval{VehicleID: vehicle.ID}

	if !buildInterval(ctx, req, &si) {
		return
	}

	if err := db.DB.Create(&si).Error; err != nil {
		log.Printf("Failed to create interval: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create interval"})
		return
	}

	ctx.JSON(http.StatusCreated, intervalSummary(si, vehicle))
}

func ListIntervals(ctx *gin.Context) {
	vehicle, ok := currentVehicle(ctx)

	if !ok {
		return
	}

	var intervalList []models.ServiceInterval

	if err := db.DB.Where("vehicle_id = ?", vehicle.ID).Order("id").Find(&intervalList).Error; err != nil {
		log.Printf("Failed to list intervals: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve intervals"})
		return
	}

	summaries := make([]IntervalSummary, len(intervalList))

	for i, si := range intervalList {
		summaries[i] = intervalSummary(si, vehicle)
	}

	ctx.JSON(http.StatusOK, gin.H{"intervals": summaries})
}

func currentInterval(ctx *gin.Context, vehicle models.Vehicle) (models.ServiceInterval, bool) {
	var si models.ServiceInterval

	intervalID, err := utils.ParamID(ctx, "interval_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return si, false
	}

	if err := db.DB.Where("id = ? AND vehicle_id = ?", intervalID, vehicle.ID).First(&si).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Interval not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve interval"})
		}
		return si, false
	}

	return si, true
}

func UpdateInterval(ctx *gin.Context) {
	vehicle, ok := currentVehicle(ctx)

	if !ok {
		return
	}

	si, ok := currentInterval(ctx, vehicle)

	if !ok {
		return
	}

	var req IntervalRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !buildInterval(ctx, req, &si) {
		return
	}

	if err := db.DB.Save(&si).Error; err != nil {
		log.Printf("Failed to update interval %d: %v", si.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update interval"})
		return
	}

	ctx.JSON(http.StatusOK, intervalSummary(si, vehicle))
}

func DeleteInterval(ctx *gin.Context) {
	vehicle, ok := currentVehicle(ctx)

	if !ok {
		return
	}

	si, ok := currentInterval(ctx, vehicle)

	if !ok {
		return
	}

	if err := db.DB.Unscoped().Delete(&si).Error; err != nil {
		log.Printf("Failed to delete interval %d: %v", si.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete interval"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Interval deleted"})
}

// RecordService resets the interval's anchor to the completed service
// and clears its notified sets, restarting the due cycle. The follow-up
// interval check runs immediately but can never fail the request.
func RecordService(ctx *gin.Context) {
	vehicle, ok := currentVehicle(ctx)

	if !ok {
		return
	}

	si, ok := currentInterval(ctx, vehicle)

	if !ok {
		return
	}

	var req RecordServiceRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	serviceDate := time.Now()

	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Date must be RFC 3339"})
			return
		}

		serviceDate = parsed
	}

	si.ResetAnchor(serviceDate, req.Mileage)

	if err := db.DB.Save(&si).Error; err != nil {
		log.Printf("Failed to record service for interval %d: %v", si.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record service"})
		return
	}

	if Bus != nil {
		Bus.Emit("service_recorded", map[string]interface{}{
			"vehicle":    vehicle.Name,
			"vehicle_id": vehicle.ID,
			"item":       si.Name,
			"mileage":    req.Mileage,
			"date":       serviceDate.Format(time.RFC3339),
		})
	}

	if Checker != nil {
		if err := Checker.CheckAndNotify(vehicle.ID, intervals.SourceImmediate); err != nil {
			log.Printf("Interval check after service record failed: %v", err)
		}
	}

	ctx.JSON(http.StatusOK, intervalSummary(si, vehicle))
}
