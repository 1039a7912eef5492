package dto

import (
	"field-crm/internal/entities"
	"field-crm/pkg/geo"
)

type RecordLocationDTO struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Heading   *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	Altitude  *float64 `json:"altitude,omitempty"`
	IsMoving  bool     `json:"isMoving"`
	JobID     *string  `json:"jobId,omitempty"`
}

type DispatchDTO struct {
	Address      string  `json:"address" validate:"required,min=3"`
	JobID        *string `json:"jobId,omitempty"`
	CustomerName *string `json:"customerName,omitempty"`
	ServiceType  *string `json:"serviceType,omitempty"`
	// SendEmail defaults to true.
	SendEmail *bool `json:"sendEmail,omitempty"`
	// Reserve atomically marks the chosen technician busy.
	Reserve bool `json:"reserve,omitempty"`
}

type DispatchResultDTO struct {
	Success        bool                         `json:"success"`
	Technician     *entities.Technician         `json:"technician,omitempty"`
	Location       *entities.TechnicianLocation `json:"location,omitempty"`
	DistanceMeters float64                      `json:"distanceMeters"`
	DistanceMiles  float64                      `json:"distanceMiles"`
	Coordinates    *geo.Coordinates             `json:"coordinates,omitempty"`
	EmailSent      bool                         `json:"emailSent"`
	Reserved       bool                         `json:"reserved,omitempty"`
	Error          string                       `json:"error,omitempty"`
}
