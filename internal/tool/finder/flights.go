package finder

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"waypoint/internal/logger"
	"waypoint/internal/search"
	"waypoint/internal/tool"
)

// FlightsInput is the argument shape of flights_finder.
type FlightsInput struct {
	DepartureAirport string   `json:"departure_airport" validate:"required,len=3,alpha"`
	ArrivalAirport   string   `json:"arrival_airport" validate:"required,len=3,alpha"`
	OutboundDate     string   `json:"outbound_date" validate:"required,datetime=2006-01-02"`
	ReturnDate       string   `json:"return_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Currency         string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	Adults           int      `json:"adults,omitempty" validate:"gte=0,lte=9"`
	Children         int      `json:"children,omitempty" validate:"gte=0,lte=9"`
	InfantsInSeat    int      `json:"infants_in_seat,omitempty" validate:"gte=0,lte=9"`
	InfantsOnLap     int      `json:"infants_on_lap,omitempty" validate:"gte=0,lte=9"`
	TravelClass      int      `json:"travel_class,omitempty" validate:"omitempty,oneof=1 2 3 4"`
	SortBy           string   `json:"sort_by,omitempty" validate:"omitempty,oneof=top price departure arrival duration emissions"`
	MaxResults       int      `json:"max_results,omitempty" validate:"gte=0"`
	Preferences      []string `json:"preferences,omitempty"`
}

func (in FlightsInput) Validate() error {
	if in.ReturnDate != "" && in.ReturnDate < in.OutboundDate {
		return errors.New("return_date must not be before outbound_date")
	}
	return nil
}

type flightsArgs struct {
	Params FlightsInput `json:"params" validate:"required"`
}

func (a flightsArgs) Validate() error { return a.Params.Validate() }

// SerpAPI google_flights sort_by codes
var flightSortCodes = map[string]string{
	"top":       "1",
	"price":     "2",
	"departure": "3",
	"arrival":   "4",
	"duration":  "5",
	"emissions": "6",
}

// NewFlightsFinder returns the flights_finder tool.
func NewFlightsFinder(serp *search.SerpAPI) tool.Tool {
	return tool.NewTyped(tool.Spec[flightsArgs]{
		Name:        FlightsFinder,
		Description: "Find flights using the Google Flights engine.",
		BestPractices: `**flights_finder**: use IATA airport codes (MAD, JFK, CDG).
Set return_date only for round trips. Dates are YYYY-MM-DD.`,
		Schema: paramsSchema(map[string]any{
			"departure_airport": str("Departure airport code (IATA)"),
			"arrival_airport":   str("Arrival airport code (IATA)"),
			"outbound_date":     str("Outbound date in YYYY-MM-DD format"),
			"return_date":       str("Return date in YYYY-MM-DD format"),
			"currency":          str("Currency for prices"),
			"adults":            integer("Number of adult passengers"),
			"children":          integer("Number of child passengers"),
			"infants_in_seat":   integer("Number of infants in seat"),
			"infants_on_lap":    integer("Number of infants on lap"),
			"travel_class":      integer("Travel class (1=Economy, 2=Premium economy, 3=Business, 4=First)"),
		}, "departure_airport", "arrival_airport", "outbound_date"),
		Handler: func(ctx context.Context, args flightsArgs) (*tool.Result, error) {
			return searchFlights(ctx, serp, args.Params), nil
		},
	})
}

// FlightsQuery builds the SerpAPI parameters for in.
func FlightsQuery(in FlightsInput) url.Values {
	v := url.Values{}
	v.Set("departure_id", in.DepartureAirport)
	v.Set("arrival_id", in.ArrivalAirport)
	v.Set("outbound_date", in.OutboundDate)
	v.Set("currency", withDefaultString(in.Currency, "EUR"))
	v.Set("adults", strconv.Itoa(withDefault(in.Adults, 1)))
	v.Set("travel_class", strconv.Itoa(withDefault(in.TravelClass, 1)))
	v.Set("deep_search", "true")
	v.Set("stops", "1")

	// one way unless a return date is given
	v.Set("type", "2")
	if in.ReturnDate != "" {
		v.Set("type", "1")
		v.Set("return_date", in.ReturnDate)
	}

	setPositive(v, "children", in.Children)
	setPositive(v, "infants_in_seat", in.InfantsInSeat)
	setPositive(v, "infants_on_lap", in.InfantsOnLap)

	if code, ok := flightSortCodes[in.SortBy]; ok {
		v.Set("sort_by", code)
	}
	return v
}

func searchFlights(ctx context.Context, serp *search.SerpAPI, in FlightsInput) *tool.Result {
	log := logger.FromContext(ctx)
	log.Info("🔍 Starting flight search %s → %s on %s", in.DepartureAirport, in.ArrivalAirport, in.OutboundDate)

	q := FlightsQuery(in)
	params := echo(q)
	if len(in.Preferences) > 0 {
		params["preferences"] = in.Preferences
	}

	doc, err := serp.Search(ctx, search.EngineFlights, q)
	if err != nil {
		log.Error("Error in flight search: %v", err)
		return envelopeResult(search.Failure(err, params))
	}
	if len(doc) == 0 {
		return envelopeResult(search.NoData("No data returned from search", params))
	}

	flights := search.Objects(doc["flights"])
	if flights == nil {
		flights = append(search.Objects(doc["best_flights"]), search.Objects(doc["other_flights"])...)
	}
	if len(flights) == 0 {
		log.Warn("No flights found")
		return envelopeResult(search.NoResults("No flights found for these criteria", params))
	}

	log.Info("✨ Found %d flights", len(flights))
	return envelopeResult(search.Success(search.Limit(flights, in.MaxResults), len(flights), params))
}
