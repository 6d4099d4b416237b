package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SerpAPI engines used by the finders.
const (
	EngineFlights = "google_flights"
	EngineHotels  = "google_hotels"
	EngineJobs    = "google_jobs"
)

// ErrMissingKey is returned when a client is used without credentials.
var ErrMissingKey = errors.New("api key not configured")

// SerpAPIOptions configures a SerpAPI client.
type SerpAPIOptions struct {
	APIKey   string
	BaseURL  string
	Language string // hl
	Country  string // gl
	Timeout  time.Duration
}

// SerpAPI queries the Google engines exposed by serpapi.com.
type SerpAPI struct {
	opts SerpAPIOptions
	http *http.Client
}

func NewSerpAPI(opts SerpAPIOptions) *SerpAPI {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://serpapi.com/search.json"
	}
	return &SerpAPI{opts: opts, http: newHTTPClient(opts.Timeout)}
}

// Language returns the hl value sent with every query.
func (c *SerpAPI) Language() string { return c.opts.Language }

// Country returns the gl value sent with every query.
func (c *SerpAPI) Country() string { return c.opts.Country }

// Search runs one engine query and returns the decoded JSON document.
// engine, api_key, hl and gl are filled in unless params already carries them.
func (c *SerpAPI) Search(ctx context.Context, engine string, params url.Values) (map[string]any, error) {
	if c.opts.APIKey == "" {
		return nil, fmt.Errorf("serpapi: %w", ErrMissingKey)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("engine", engine)
	q.Set("api_key", c.opts.APIKey)
	if q.Get("hl") == "" && c.opts.Language != "" {
		q.Set("hl", c.opts.Language)
	}
	if q.Get("gl") == "" && c.opts.Country != "" {
		q.Set("gl", c.opts.Country)
	}

	req, err := http.NewRequest(http.MethodGet, c.opts.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	var doc map[string]any
	if err := getJSON(ctx, c.http, req, &doc); err != nil {
		return nil, fmt.Errorf("serpapi %s: %w", engine, err)
	}

	if msg, ok := doc["error"].(string); ok && msg != "" {
		// SerpAPI reports "no results" through the error field as well.
		if isNoResultsMessage(msg) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("serpapi %s: %s", engine, msg)
	}

	return doc, nil
}

func isNoResultsMessage(msg string) bool {
	return len(msg) >= 26 && msg[:26] == "Google hasn't returned any"
}
