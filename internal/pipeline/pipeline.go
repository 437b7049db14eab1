package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agroflow/irrigation-advisor/internal/agro"
	"github.com/agroflow/irrigation-advisor/internal/features"
	"github.com/agroflow/irrigation-advisor/internal/notify"
	"github.com/agroflow/irrigation-advisor/internal/predict"
	"github.com/agroflow/irrigation-advisor/internal/queue"
	"github.com/agroflow/irrigation-advisor/internal/store"
	"github.com/agroflow/irrigation-advisor/internal/weather"
)

// Farmer identifies the recipient of a recommendation.
type Farmer struct {
	ID              string
	Language        string
	Address         string
	ChannelOverride notify.ChannelKind
}

// Request is one farmer's recommendation request. Owned by a single pipeline
// instance for its lifetime; nothing here is shared across requests.
type Request struct {
	ID       uuid.UUID
	Farmer   Farmer
	Location weather.Location

	CropType     string
	SoilType     string
	PlantingDate time.Time

	Sensor            *agro.SensorReading
	PriorDeficitMM    float64
	PriorIrrigationMM float64
}

// SensorSource is the optional sensor ingestion collaborator. When absent
// (nil) requests proceed without sensor fusion; that is a normal path.
type SensorSource interface {
	Latest(farmerID string) (agro.SensorReading, bool)
}

// Config holds the orchestrator's tunables.
type Config struct {
	ForecastDays int
	Workers      int
	// RequestDeadline bounds one request end to end: weather fetch plus
	// prediction plus delivery.
	RequestDeadline time.Duration
}

// Orchestrator runs requests through weather acquisition, feature derivation,
// prediction, and delivery. Requests flow through the bounded queue into a
// fixed worker pool; independent requests complete in any order.
type Orchestrator struct {
	cfg Config

	queue      *queue.Queue[Request]
	weatherSvc *weather.Service
	refDB      *agro.ReferenceDB
	featEngine *features.Engine
	predEngine *predict.Engine
	dispatcher *notify.Dispatcher
	audit      *store.AuditStore
	sensors    SensorSource

	log *slog.Logger
	wg  sync.WaitGroup
}

// New wires an Orchestrator. sensors may be nil.
func New(
	cfg Config,
	q *queue.Queue[Request],
	weatherSvc *weather.Service,
	refDB *agro.ReferenceDB,
	featEngine *features.Engine,
	predEngine *predict.Engine,
	dispatcher *notify.Dispatcher,
	audit *store.AuditStore,
	sensors SensorSource,
	log *slog.Logger,
) *Orchestrator {
	if cfg.ForecastDays <= 0 {
		cfg.ForecastDays = 7
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.RequestDeadline <= 0 {
		cfg.RequestDeadline = 45 * time.Second
	}
	return &Orchestrator{
		cfg:        cfg,
		queue:      q,
		weatherSvc: weatherSvc,
		refDB:      refDB,
		featEngine: featEngine,
		predEngine: predEngine,
		dispatcher: dispatcher,
		audit:      audit,
		sensors:    sensors,
		log:        log,
	}
}

// Submit admits a request to the queue. A full queue returns
// queue.ErrCapacityExceeded; callers should relay a retry-after signal.
func (o *Orchestrator) Submit(req Request) error {
	if err := o.queue.Enqueue(req); err != nil {
		o.log.Warn("request refused", "requestId", req.ID, "error", err)
		return err
	}
	o.log.Debug("request queued", "requestId", req.ID, "depth", o.queue.Len())
	return nil
}

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled; Wait blocks until they exit.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go func(worker int) {
			defer o.wg.Done()
			for {
				req, err := o.queue.Dequeue(ctx)
				if err != nil {
					return
				}
				reqCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestDeadline)
				if _, err := o.Process(reqCtx, req); err != nil {
					o.log.Error("request failed",
						"worker", worker, "requestId", req.ID, "error", err)
				}
				cancel()
			}
		}(i)
	}
}

// Wait blocks until all workers have exited.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Process runs one request through the full pipeline and persists the audit
// record. Exposed for synchronous callers and tests; Start workers call it
// per dequeued request.
func (o *Orchestrator) Process(ctx context.Context, req Request) (store.Record, error) {
	crop, soil, err := o.validate(req)
	if err != nil {
		return o.fail(req, err), err
	}

	forecast, degraded, err := o.acquireWeather(ctx, req.Location)
	if err != nil {
		return o.fail(req, err), err
	}

	// Optional sensor collaborator; the request's own reading wins over the
	// ingestion feed.
	sensor := req.Sensor
	if sensor == nil && o.sensors != nil {
		if reading, ok := o.sensors.Latest(req.Farmer.ID); ok {
			sensor = &reading
		}
	}

	vec, audit, err := o.featEngine.Derive(features.Inputs{
		Weather:           forecast,
		Crop:              crop,
		Soil:              soil,
		Sensor:            sensor,
		PriorDeficitMM:    req.PriorDeficitMM,
		PriorIrrigationMM: req.PriorIrrigationMM,
		Now:               time.Now().UTC(),
	})
	if err != nil {
		err = fmt.Errorf("feature derivation: %w", err)
		return o.fail(req, err), err
	}

	result, err := o.predEngine.Predict(vec)
	if err != nil {
		// Unreachable with the linear fallback configured; guard anyway.
		err = fmt.Errorf("prediction: %w", err)
		return o.fail(req, err), err
	}
	result.AccuracyDegraded = degraded

	message := notify.FormatMessage(req.Farmer.Language, crop.Type, result)
	outcome := o.dispatcher.Dispatch(ctx, notify.Recipient{
		Address:         req.Farmer.Address,
		ChannelOverride: req.Farmer.ChannelOverride,
		Language:        req.Farmer.Language,
	}, message)

	rec := store.Record{
		RequestID: req.ID,
		FarmerID:  req.Farmer.ID,
		Status:    store.StatusCompleted,
		Result:    result,
		Outcome:   outcome,
		Warnings:  audit.Warnings,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	o.audit.Save(rec)

	o.log.Info("request processed",
		"requestId", req.ID,
		"model", result.ModelUsed,
		"timingDays", result.TimingDays,
		"quantityMm", result.QuantityMM,
		"confidence", result.Confidence,
		"degraded", degraded,
		"delivered", outcome.Delivered)
	return rec, nil
}

// fail persists a failed-status record so callers polling by request ID see
// the terminal error instead of a permanent miss.
func (o *Orchestrator) fail(req Request, cause error) store.Record {
	rec := store.Record{
		RequestID: req.ID,
		FarmerID:  req.Farmer.ID,
		Status:    store.StatusFailed,
		Error:     cause.Error(),
		CreatedAt: time.Now().UTC(),
	}
	o.audit.Save(rec)
	return rec
}

// validate resolves crop and soil against the reference database. Unknown
// types are field-specific InvalidInput failures, never coerced.
func (o *Orchestrator) validate(req Request) (agro.CropProfile, agro.SoilProfile, error) {
	if req.Farmer.Address == "" {
		return agro.CropProfile{}, agro.SoilProfile{}, InvalidInputError{Field: "farmer.address", Msg: "required"}
	}
	crop, err := o.refDB.CropWithPlanting(req.CropType, req.PlantingDate)
	if err != nil {
		return agro.CropProfile{}, agro.SoilProfile{}, InvalidInputError{Field: "cropType", Msg: err.Error()}
	}
	soil, err := o.refDB.SoilByType(req.SoilType)
	if err != nil {
		return agro.CropProfile{}, agro.SoilProfile{}, InvalidInputError{Field: "soilType", Msg: err.Error()}
	}
	return crop, soil, nil
}

// acquireWeather fetches a forecast, falling back to cached data when every
// provider fails. Any cached fallback marks the eventual recommendation as
// accuracy degraded; only a cold cache fails the request.
func (o *Orchestrator) acquireWeather(ctx context.Context, loc weather.Location) (weather.Forecast, bool, error) {
	forecast, err := o.weatherSvc.Forecast(ctx, loc, o.cfg.ForecastDays)
	if err == nil {
		return forecast, false, nil
	}
	if !errors.Is(err, weather.ErrWeatherUnavailable) {
		return nil, false, err
	}

	if cached, ok := o.weatherSvc.Cache().Get(loc, o.weatherSvc.MaxAge()); ok {
		o.log.Warn("serving fresh-enough cached forecast", "location", loc.Key())
		return cached, true, nil
	}
	if cached, age, cacheErr := o.weatherSvc.Cache().GetAny(loc); cacheErr == nil {
		o.log.Warn("serving stale cached forecast",
			"location", loc.Key(), "age", age)
		return cached, true, nil
	}

	return nil, false, fmt.Errorf("%w: no cached data for %s", weather.ErrWeatherUnavailable, loc.Key())
}
