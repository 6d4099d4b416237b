package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AirbnbOptions configures the Airbnb listings client.
type AirbnbOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Airbnb queries the Airbnb search_results endpoint.
type Airbnb struct {
	opts AirbnbOptions
	http *http.Client
}

func NewAirbnb(opts AirbnbOptions) *Airbnb {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.airbnb.com/v2/search_results"
	}
	return &Airbnb{opts: opts, http: newHTTPClient(opts.Timeout)}
}

// Listings runs a search. found is false when the response has no listings key.
func (c *Airbnb) Listings(ctx context.Context, params url.Values) (listings []map[string]any, found bool, err error) {
	if c.opts.APIKey == "" {
		return nil, false, fmt.Errorf("airbnb: %w", ErrMissingKey)
	}

	req, err := http.NewRequest(http.MethodGet, c.opts.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("X-Airbnb-API-Key", c.opts.APIKey)

	var doc map[string]any
	if err := getJSON(ctx, c.http, req, &doc); err != nil {
		return nil, false, fmt.Errorf("airbnb: %w", err)
	}

	raw, ok := doc["listings"]
	if !ok {
		return nil, false, nil
	}
	return Objects(raw), true, nil
}

// Listing is the condensed view of an Airbnb result.
type Listing struct {
	ID        any      `json:"id"`
	Title     any      `json:"title"`
	Type      any      `json:"type"`
	Price     any      `json:"price"`
	Rating    any      `json:"rating"`
	Reviews   any      `json:"reviews"`
	Location  Location `json:"location"`
	Amenities []string `json:"amenities"`
}

type Location struct {
	Neighborhood any `json:"neighborhood"`
	City         any `json:"city"`
}

// FormatListings condenses raw listings.
func FormatListings(listings []map[string]any) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		item := Listing{
			ID:        l["id"],
			Title:     l["name"],
			Type:      l["room_type"],
			Price:     l["price"],
			Rating:    l["rating"],
			Reviews:   l["reviews_count"],
			Location:  Location{Neighborhood: l["neighborhood"], City: l["city"]},
			Amenities: stringList(l["amenities"]),
		}
		if item.Amenities == nil {
			item.Amenities = []string{}
		}
		out = append(out, item)
	}
	return out
}
