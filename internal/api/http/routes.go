package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/agroflow/irrigation-advisor/internal/agro"
	"github.com/agroflow/irrigation-advisor/internal/notify"
	"github.com/agroflow/irrigation-advisor/internal/pipeline"
	"github.com/agroflow/irrigation-advisor/internal/queue"
	"github.com/agroflow/irrigation-advisor/internal/store"
	"github.com/agroflow/irrigation-advisor/internal/weather"
)

var validate = validator.New()

// recommendationRequest is the submission payload.
type recommendationRequest struct {
	FarmerID        string  `json:"farmerId" validate:"required"`
	Language        string  `json:"language"`
	Address         string  `json:"address" validate:"required"`
	ChannelOverride string  `json:"channelOverride" validate:"omitempty,oneof=whatsapp sms"`
	LocationName    string  `json:"locationName" validate:"required"`
	LocationCountry string  `json:"locationCountry" validate:"required"`
	Lat             float64 `json:"lat" validate:"min=-90,max=90"`
	Lon             float64 `json:"lon" validate:"min=-180,max=180"`
	CropType        string  `json:"cropType" validate:"required"`
	SoilType        string  `json:"soilType" validate:"required"`
	PlantingDate    string  `json:"plantingDate" validate:"required"`

	Sensor            *agro.SensorReading `json:"sensor"`
	PriorDeficitMM    float64             `json:"priorDeficitMm" validate:"min=0"`
	PriorIrrigationMM float64             `json:"priorIrrigationMm" validate:"min=0"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, orch *pipeline.Orchestrator, refDB *agro.ReferenceDB, audit *store.AuditStore, cache *weather.Cache) {
	v1 := app.Group("/api/v1")

	v1.Post("/recommendations", func(c *fiber.Ctx) error {
		var req recommendationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		planted, err := time.Parse("2006-01-02", req.PlantingDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "plantingDate must be YYYY-MM-DD")
		}

		// Resolve crop and soil up front so the caller gets a field-specific
		// rejection here instead of discovering it by polling after the 202.
		if _, err := refDB.CropWithPlanting(req.CropType, planted); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("cropType: %v", err))
		}
		if _, err := refDB.SoilByType(req.SoilType); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("soilType: %v", err))
		}

		pReq := pipeline.Request{
			ID: uuid.New(),
			Farmer: pipeline.Farmer{
				ID:              req.FarmerID,
				Language:        req.Language,
				Address:         req.Address,
				ChannelOverride: notify.ChannelKind(req.ChannelOverride),
			},
			Location: weather.Location{
				Name:    req.LocationName,
				Country: req.LocationCountry,
				Lat:     req.Lat,
				Lon:     req.Lon,
			},
			CropType:          req.CropType,
			SoilType:          req.SoilType,
			PlantingDate:      planted,
			Sensor:            req.Sensor,
			PriorDeficitMM:    req.PriorDeficitMM,
			PriorIrrigationMM: req.PriorIrrigationMM,
		}

		if err := orch.Submit(pReq); err != nil {
			if errors.Is(err, queue.ErrCapacityExceeded) {
				c.Set("Retry-After", fmt.Sprintf("%.0f", queue.RetryAfter.Seconds()))
				return fiber.NewError(fiber.StatusTooManyRequests, "at capacity, retry later")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to queue request")
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"requestId": pReq.ID,
			"status":    "queued",
		})
	})

	v1.Get("/recommendations/:id", func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
		}

		rec, err := audit.Get(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no record for request id")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch record")
		}
		return c.JSON(rec)
	})

	v1.Get("/weather/cached", func(c *fiber.Ctx) error {
		name := c.Query("name")
		country := c.Query("country")
		if name == "" || country == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and country query parameters are required")
		}

		loc := weather.Location{Name: name, Country: country}
		forecast, age, err := cache.GetAny(loc)
		if err != nil {
			if errors.Is(err, weather.ErrNotCached) {
				return fiber.NewError(fiber.StatusNotFound, "no cached forecast for location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read cache")
		}

		return c.JSON(fiber.Map{
			"location":   loc,
			"ageSeconds": int(age.Seconds()),
			"forecast":   forecast,
		})
	})
}
