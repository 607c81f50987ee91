package models

import "gorm.io/gorm"

type Vehicle struct {
	gorm.Model

	UserID          uint    `gorm:"not null;index"`
	Name            string  `gorm:"not null"`
	Make            string
	VehicleModel    string
	Year            int
	CurrentOdometer float64 `gorm:"not null;default:0"`

	// Relationships
	User             User              `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	ServiceIntervals []ServiceInterval `gorm:"foreignKey:VehicleID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
