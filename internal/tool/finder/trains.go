package finder

import (
	"context"
	"fmt"
	"time"

	"waypoint/internal/logger"
	"waypoint/internal/search"
	"waypoint/internal/tool"
)

// TrainsInput is the argument shape of trains_finder.
type TrainsInput struct {
	OriginCity      string `json:"origin_city" validate:"required"`
	DestinationCity string `json:"destination_city" validate:"required"`
	DepartureDate   string `json:"departure_date" validate:"required,datetime=2006-01-02"`
	DepartureTime   string `json:"departure_time,omitempty" validate:"omitempty,datetime=15:04"`
	MaxResults      int    `json:"max_results,omitempty" validate:"gte=0"`
}

// Departure combines date and optional time; midnight when no time is given.
func (in TrainsInput) Departure() (time.Time, error) {
	t := in.DepartureTime
	if t == "" {
		t = "00:00"
	}
	return time.Parse("2006-01-02 15:04", in.DepartureDate+" "+t)
}

type trainsArgs struct {
	Params TrainsInput `json:"params" validate:"required"`
}

// NewTrainsFinder returns the trains_finder tool.
func NewTrainsFinder(sncf *search.SNCF) tool.Tool {
	return tool.NewTyped(tool.Spec[trainsArgs]{
		Name:        TrainsFinder,
		Description: "Search SNCF trains between two French cities.",
		Schema: paramsSchema(map[string]any{
			"origin_city":      str("Departure city (e.g. Paris)"),
			"destination_city": str("Arrival city (e.g. Lyon)"),
			"departure_date":   str("Departure date (YYYY-MM-DD)"),
			"departure_time":   str("Departure time (HH:MM)"),
		}, "origin_city", "destination_city", "departure_date"),
		Handler: func(ctx context.Context, args trainsArgs) (*tool.Result, error) {
			return searchTrains(ctx, sncf, args.Params)
		},
	})
}

func searchTrains(ctx context.Context, sncf *search.SNCF, in TrainsInput) (*tool.Result, error) {
	log := logger.FromContext(ctx)
	log.Info("🔍 Starting train search: %s → %s", in.OriginCity, in.DestinationCity)

	dep, err := in.Departure()
	if err != nil {
		return nil, fmt.Errorf("invalid departure: %w", err)
	}

	params := map[string]any{
		"from": in.OriginCity,
		"to":   in.DestinationCity,
		"date": in.DepartureDate,
		"time": withDefaultString(in.DepartureTime, "00:00"),
	}

	trains, err := sncf.Journeys(ctx, search.JourneyQuery{
		OriginCity:      in.OriginCity,
		DestinationCity: in.DestinationCity,
		Departure:       dep,
	})
	if err != nil {
		log.Error("Error in train search: %v", err)
		return envelopeResult(search.Failure(err, params)), nil
	}
	if len(trains) == 0 {
		log.Warn("No trains found")
		return envelopeResult(search.NoResults("No trains found for these criteria", params)), nil
	}

	log.Info("✨ Found %d trains", len(trains))
	return envelopeResult(search.Success(search.Limit(trains, in.MaxResults), len(trains), params)), nil
}
