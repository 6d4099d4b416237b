// Package finder implements the search tools offered to the model.
// Every tool takes a single "params" object and answers with a search.Envelope.
package finder

import (
	"net/url"
	"strconv"

	"waypoint/internal/search"
	"waypoint/internal/tool"
)

// Tool names as advertised to the model.
const (
	FlightsFinder = "flights_finder"
	HotelsFinder  = "hotels_finder"
	TrainsFinder  = "trains_finder"
	JobsFinder    = "jobs_finder"
	AirbnbFinder  = "airbnb_finder"
)

// Clients bundles the upstream APIs used by the finders.
type Clients struct {
	SerpAPI *search.SerpAPI
	SNCF    *search.SNCF
	Airbnb  *search.Airbnb
}

// All returns every finder wired to clients.
func All(c Clients) []tool.Tool {
	return []tool.Tool{
		NewFlightsFinder(c.SerpAPI),
		NewHotelsFinder(c.SerpAPI),
		NewTrainsFinder(c.SNCF),
		NewJobsFinder(c.SerpAPI),
		NewAirbnbFinder(c.Airbnb),
	}
}

// Register adds every finder to registry.
func Register(registry *tool.Registry, c Clients) error {
	for _, t := range All(c) {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func envelopeResult(env *search.Envelope) *tool.Result {
	return &tool.Result{
		Success: env.OK(),
		Output:  env.String(),
		Data:    map[string]any{"status": string(env.Status)},
	}
}

// echo flattens query values into the search_params echoed back to the model.
func echo(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, vals := range v {
		if len(vals) == 1 {
			out[k] = vals[0]
		} else {
			out[k] = vals
		}
	}
	return out
}

func setPositive(v url.Values, key string, n int) {
	if n > 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

func withDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func withDefaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
