package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/intervals"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VehicleRequest struct {
	Name     string  `json:"name" binding:"required"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	Year     int     `json:"year"`
	Odometer float64 `json:"odometer"`
}

type OdometerRequest struct {
	Odometer float64 `json:"odometer" binding:"required"`
}

type VehicleSummary struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	Year     int     `json:"year"`
	Odometer float64 `json:"odometer"`
}

func vehicleSummary(vehicle models.Vehicle) VehicleSummary {
	return VehicleSummary{
		ID:       vehicle.ID,
		Name:     vehicle.Name,
		Make:     vehicle.Make,
		Model:    vehicle.VehicleModel,
		Year:     vehicle.Year,
		Odometer: vehicle.CurrentOdometer,
	}
}

func currentVehicle(ctx *gin.Context) (models.Vehicle, bool) {
	var vehicle models.Vehicle

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return vehicle, false
	}

	vehicleID, err := utils.ParamID(ctx, "vehicle_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return vehicle, false
	}

	if err := db.DB.Where("id = ? AND user_id = ?", vehicleID, userID).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve vehicle"})
		}
		return vehicle, false
	}

	return vehicle, true
}

func CreateVehicle(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req VehicleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle := models.Vehicle{
		UserID:          userID,
		Name:            req.Name,
		Make:            req.Make,
		VehicleModel:    req.Model,
		Year:            req.Year,
		CurrentOdometer: req.Odometer,
	}

	if err := db.DB.Create(&vehicle).Error; err != nil {
		log.Printf("Failed to create vehicle: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vehicle"})
		return
	}

	ctx.JSON(http.StatusCreated, vehicleSummary(vehicle))
}

func ListVehicles(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var vehicles []models.Vehicle

	if err := db.DB.Where("user_id = ?", userID).Order("id").Find(&vehicles).Error; err != nil {
		log.Printf("Failed to list vehicles: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve vehicles"})
		return
	}

	summaries := make([]VehicleSummary, len(vehicles))

	for i, vehicle := range vehicles {
		summaries[i] = vehicleSummary(vehicle)
	}

	ctx.JSON(http.StatusOK, gin.H{"vehicles": summaries})
}

func UpdateVehicle(ctx *gin.Context) {
	vehicle, ok := currentVehicle(ctx)

	if !ok {
		return
	}

	var req VehicleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle.Name = req.Name
	vehicle.Make = req.Make
	vehicle.VehicleModel = req.Model
	vehicle.Year = req.Year

	if err := db.DB.Save(&vehicle).Error; err != nil {
		log.Printf("Failed to update vehicle %d: %v", vehicle.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vehicle"})
		return
	}

	ctx.JSON(http.StatusOK, vehicleSummary(vehicle))
}

func DeleteVehicle(ctx *gin.Context) {
	vehicle, ok := currentVehicle(ctx)

	if !ok {
		return
	}

	if err := db.DB.Select("ServiceIntervals").Unscoped().Delete(&vehicle).Error; err != nil {
		log.Printf("Failed to delete vehicle %d: %v", vehicle.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete vehicle"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
}

// UpdateOdometer records a new reading, emits the domain event and
// runs an immediate interval check. Notification problems never fail
// the odometer update itself.
func UpdateOdometer(ctx *gin.Context) {
	vehicle, ok := currentVehicle(ctx)

	if !ok {
		return
	}

	var req OdometerRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Odometer < vehicle.CurrentOdometer {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Odometer cannot decrease"})
		return
	}

	previous := vehicle.CurrentOdometer
	vehicle.CurrentOdometer = req.Odometer

	if err := db.DB.Save(&vehicle).Error; err != nil {
		log.Printf("Failed to update odometer for vehicle %d: %v", vehicle.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update odometer"})
		return
	}

	if Bus != nil {
		Bus.Emit("odometer_updated", map[string]interface{}{
			"vehicle":    vehicle.Name,
			"vehicle_id": vehicle.ID,
			"odometer":   vehicle.CurrentOdometer,
			"previous":   previous,
		})
	}

	if Checker != nil {
		if err := Checker.CheckAndNotify(vehicle.ID, intervals.SourceImmediate); err != nil {
			log.Printf("Interval check after odometer update failed: %v", err)
		}
	}

	ctx.JSON(http.StatusOK, vehicleSummary(vehicle))
}
