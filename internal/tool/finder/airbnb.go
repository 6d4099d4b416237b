package finder

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"waypoint/internal/logger"
	"waypoint/internal/search"
	"waypoint/internal/tool"
)

const defaultMaxRentals = 5

// AirbnbInput is the argument shape of airbnb_finder.
type AirbnbInput struct {
	Location   string   `json:"location" validate:"required"`
	CheckIn    string   `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string   `json:"check_out" validate:"required,datetime=2006-01-02"`
	Currency   string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	Adults     int      `json:"adults,omitempty" validate:"gte=0"`
	Children   int      `json:"children,omitempty" validate:"gte=0"`
	MinPrice   int      `json:"min_price,omitempty" validate:"gte=0"`
	MaxPrice   int      `json:"max_price,omitempty" validate:"gte=0"`
	RoomTypes  []string `json:"room_types,omitempty"`
	Amenities  []string `json:"amenities,omitempty"`
	SortBy     string   `json:"sort_by,omitempty" validate:"omitempty,oneof=price_low price_high rating"`
	MaxResults int      `json:"max_results,omitempty" validate:"gte=0"`
}

func (in AirbnbInput) Validate() error {
	if in.CheckOut <= in.CheckIn {
		return errors.New("check_out must be after check_in")
	}
	if in.MaxPrice > 0 && in.MinPrice > in.MaxPrice {
		return errors.New("min_price must not exceed max_price")
	}
	return nil
}

type airbnbArgs struct {
	Params AirbnbInput `json:"params" validate:"required"`
}

func (a airbnbArgs) Validate() error { return a.Params.Validate() }

// NewAirbnbFinder returns the airbnb_finder tool.
func NewAirbnbFinder(client *search.Airbnb) tool.Tool {
	return tool.NewTyped(tool.Spec[airbnbArgs]{
		Name:        AirbnbFinder,
		Description: "Find short-term rentals on Airbnb with price and amenity filtering.",
		Schema: paramsSchema(map[string]any{
			"location":   str("Location for the search"),
			"check_in":   str("Check-in date in YYYY-MM-DD format"),
			"check_out":  str("Check-out date in YYYY-MM-DD format"),
			"currency":   str("Currency for prices"),
			"adults":     integer("Number of adults"),
			"children":   integer("Number of children"),
			"min_price":  integer("Minimum price per night"),
			"max_price":  integer("Maximum price per night"),
			"room_types": stringArray("Type of accommodation (Entire home, Private room, Shared room)"),
			"amenities":  stringArray("Required amenities"),
			"sort_by":    enum("Sorting option", "price_low", "price_high", "rating"),
		}, "location", "check_in", "check_out"),
		Handler: func(ctx context.Context, args airbnbArgs) (*tool.Result, error) {
			return searchRentals(ctx, client, args.Params), nil
		},
	})
}

// AirbnbQuery builds the listing search parameters for in.
func AirbnbQuery(in AirbnbInput) url.Values {
	v := url.Values{}
	v.Set("query", in.Location)
	v.Set("check_in", in.CheckIn)
	v.Set("check_out", in.CheckOut)
	v.Set("adults", strconv.Itoa(withDefault(in.Adults, 1)))
	v.Set("children", strconv.Itoa(in.Children))
	v.Set("currency", withDefaultString(in.Currency, "EUR"))
	v.Set("sort", withDefaultString(in.SortBy, "rating"))
	setPositive(v, "price_min", in.MinPrice)
	setPositive(v, "price_max", in.MaxPrice)
	if len(in.RoomTypes) > 0 {
		v.Set("room_types", strings.Join(in.RoomTypes, ","))
	}
	return v
}

func searchRentals(ctx context.Context, client *search.Airbnb, in AirbnbInput) *tool.Result {
	log := logger.FromContext(ctx)
	log.Info("🔍 Starting Airbnb search for %s (%s to %s)", in.Location, in.CheckIn, in.CheckOut)

	q := AirbnbQuery(in)
	params := echo(q)

	listings, found, err := client.Listings(ctx, q)
	if err != nil {
		log.Error("Error in Airbnb search: %v", err)
		return envelopeResult(search.Failure(err, params))
	}
	if !found {
		log.Warn("No accommodations found")
		return envelopeResult(search.NoResults("No accommodations found for these criteria", params))
	}

	listings = search.FilterByAmenities(listings, in.Amenities)
	if len(listings) == 0 {
		return envelopeResult(search.NoResults("No accommodations match the required amenities", params))
	}

	limited := search.Limit(listings, withDefault(in.MaxResults, defaultMaxRentals))
	return envelopeResult(search.Success(search.FormatListings(limited), len(listings), params))
}
