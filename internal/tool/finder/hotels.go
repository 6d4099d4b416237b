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

const defaultMaxHotels = 5

// HotelsInput is the argument shape of hotels_finder.
type HotelsInput struct {
	Q            string   `json:"q" validate:"required"`
	CheckInDate  string   `json:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOutDate string   `json:"check_out_date" validate:"required,datetime=2006-01-02"`
	Currency     string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	Adults       int      `json:"adults,omitempty" validate:"gte=0"`
	Children     int      `json:"children,omitempty" validate:"gte=0"`
	Rooms        int      `json:"rooms,omitempty" validate:"gte=0"`
	HotelClass   string   `json:"hotel_class,omitempty"`
	SortBy       string   `json:"sort_by,omitempty" validate:"omitempty,oneof=1 2 3 8"`
	MinPrice     int      `json:"min_price,omitempty" validate:"gte=0"`
	MaxPrice     int      `json:"max_price,omitempty" validate:"gte=0"`
	Amenities    []string `json:"amenities,omitempty"`
	MaxResults   int      `json:"max_results,omitempty" validate:"gte=0"`
	Preferences  []string `json:"preferences,omitempty"`
}

func (in HotelsInput) Validate() error {
	if in.CheckOutDate <= in.CheckInDate {
		return errors.New("check_out_date must be after check_in_date")
	}
	if in.MaxPrice > 0 && in.MinPrice > in.MaxPrice {
		return errors.New("min_price must not exceed max_price")
	}
	return nil
}

type hotelsArgs struct {
	Params HotelsInput `json:"params" validate:"required"`
}

func (a hotelsArgs) Validate() error { return a.Params.Validate() }

// NewHotelsFinder returns the hotels_finder tool.
func NewHotelsFinder(serp *search.SerpAPI) tool.Tool {
	return tool.NewTyped(tool.Spec[hotelsArgs]{
		Name:        HotelsFinder,
		Description: "Find hotels using the Google Hotels engine with amenity filtering.",
		Schema: paramsSchema(map[string]any{
			"q":              str("Location of the hotel"),
			"check_in_date":  str("Check-in date in YYYY-MM-DD format"),
			"check_out_date": str("Check-out date in YYYY-MM-DD format"),
			"currency":       str("Currency for prices"),
			"adults":         integer("Number of adults"),
			"children":       integer("Number of children"),
			"rooms":          integer("Number of rooms"),
			"hotel_class":    str("Hotel class, comma separated (2,3,4,5)"),
			"sort_by":        enum("1: price low to high, 2: price high to low, 3: distance, 8: rating", "1", "2", "3", "8"),
			"min_price":      integer("Minimum price per night"),
			"max_price":      integer("Maximum price per night"),
			"amenities":      stringArray("Required amenities"),
		}, "q", "check_in_date", "check_out_date"),
		Handler: func(ctx context.Context, args hotelsArgs) (*tool.Result, error) {
			return searchHotels(ctx, serp, args.Params), nil
		},
	})
}

// HotelsQuery builds the SerpAPI parameters for in.
func HotelsQuery(in HotelsInput) url.Values {
	v := url.Values{}
	v.Set("q", in.Q)
	v.Set("check_in_date", in.CheckInDate)
	v.Set("check_out_date", in.CheckOutDate)
	v.Set("currency", withDefaultString(in.Currency, "EUR"))
	v.Set("sort_by", withDefaultString(in.SortBy, "8"))
	setPositive(v, "adults", in.Adults)
	setPositive(v, "children", in.Children)
	setPositive(v, "rooms", in.Rooms)
	if in.HotelClass != "" {
		v.Set("hotel_class", in.HotelClass)
	}
	setPositive(v, "min_price", in.MinPrice)
	setPositive(v, "max_price", in.MaxPrice)
	return v
}

func searchHotels(ctx context.Context, serp *search.SerpAPI, in HotelsInput) *tool.Result {
	log := logger.FromContext(ctx)
	log.Info("🔍 Starting hotel search for %s (%s to %s)", in.Q, in.CheckInDate, in.CheckOutDate)

	q := HotelsQuery(in)
	params := echo(q)
	if len(in.Amenities) > 0 {
		params["amenities"] = in.Amenities
	}
	if len(in.Preferences) > 0 {
		params["preferences"] = in.Preferences
	}

	doc, err := serp.Search(ctx, search.EngineHotels, q)
	if err != nil {
		log.Error("Error in hotel search: %v", err)
		return envelopeResult(search.Failure(err, params))
	}

	raw, ok := doc["properties"]
	if !ok {
		log.Warn("No hotels found")
		return envelopeResult(search.NoResults("No hotels found for these criteria", params))
	}

	hotels := search.FilterByAmenities(search.Objects(raw), in.Amenities)
	log.Info("✨ Found %d hotels", len(hotels))
	if len(hotels) == 0 {
		return envelopeResult(search.NoResults("No hotels match the required amenities", params))
	}

	limit := withDefault(in.MaxResults, defaultMaxHotels)
	params["max_results"] = strconv.Itoa(limit)
	return envelopeResult(search.Success(search.Limit(hotels, limit), len(hotels), params))
}
