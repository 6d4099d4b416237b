package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const navitiaTimeLayout = "20060102T150405"

// SNCFOptions configures the SNCF journeys client.
type SNCFOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SNCF queries the navitia journeys endpoint of api.sncf.com.
type SNCF struct {
	opts SNCFOptions
	http *http.Client
}

func NewSNCF(opts SNCFOptions) *SNCF {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.sncf.com/v1/coverage/sncf/journeys"
	}
	return &SNCF{opts: opts, http: newHTTPClient(opts.Timeout)}
}

// JourneyQuery describes a train search.
type JourneyQuery struct {
	OriginCity      string
	DestinationCity string
	Departure       time.Time
}

// Params returns the navitia query parameters for q.
func (q JourneyQuery) Params() url.Values {
	v := url.Values{}
	v.Set("from", "admin:fr:"+q.OriginCity)
	v.Set("to", "admin:fr:"+q.DestinationCity)
	v.Set("datetime", q.Departure.Format(navitiaTimeLayout))
	v.Set("datetime_represents", "departure")
	v.Set("equipment_details", "true")
	v.Set("data_freshness", "realtime")
	return v
}

// Train is one journey summarised from its first public transport section.
type Train struct {
	Departure       Stop    `json:"departure"`
	Arrival         Stop    `json:"arrival"`
	DurationMinutes int     `json:"duration_minutes"`
	TrainType       string  `json:"train_type"`
	TrainNumber     string  `json:"train_number"`
	Company         string  `json:"company"`
	Transfers       int     `json:"transfers"`
	CO2Emission     float64 `json:"co2_emission"`
	Price           Fare    `json:"price"`
}

type Stop struct {
	Station string `json:"station"`
	City    string `json:"city"`
	Time    string `json:"time"`
}

type Fare struct {
	Found    bool     `json:"found"`
	Total    string   `json:"total"`
	Currency string   `json:"currency"`
	Tickets  []Ticket `json:"tickets"`
}

type Ticket struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cost     string `json:"cost"`
	Currency string `json:"currency"`
}

// navitia response shapes, reduced to what we read

type journeysResponse struct {
	Journeys []journey `json:"journeys"`
}

type journey struct {
	DepartureDateTime string    `json:"departure_date_time"`
	ArrivalDateTime   string    `json:"arrival_date_time"`
	Duration          int       `json:"duration"`
	NbTransfers       int       `json:"nb_transfers"`
	CO2Emission       *amount   `json:"co2_emission"`
	Fare              *fare     `json:"fare"`
	Sections          []section `json:"sections"`
}

type amount struct {
	Value    any    `json:"value"`
	Currency string `json:"currency"`
}

type fare struct {
	Found bool       `json:"found"`
	Total *amount    `json:"total"`
	Links []fareLink `json:"links"`
}

type fareLink struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Cost *amount `json:"cost"`
}

type section struct {
	Type                string       `json:"type"`
	From                *place       `json:"from"`
	To                  *place       `json:"to"`
	DisplayInformations *displayInfo `json:"display_informations"`
}

type place struct {
	StopPoint *struct {
		Name  string `json:"name"`
		Label string `json:"label"`
	} `json:"stop_point"`
}

type displayInfo struct {
	CommercialMode string `json:"commercial_mode"`
	Headsign       string `json:"headsign"`
	Network        string `json:"network"`
}

// Journeys returns the trains matching q.
func (c *SNCF) Journeys(ctx context.Context, q JourneyQuery) ([]Train, error) {
	if c.opts.APIKey == "" {
		return nil, fmt.Errorf("sncf: %w", ErrMissingKey)
	}

	req, err := http.NewRequest(http.MethodGet, c.opts.BaseURL+"?"+q.Params().Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.SetBasicAuth(c.opts.APIKey, "")

	var resp journeysResponse
	if err := getJSON(ctx, c.http, req, &resp); err != nil {
		return nil, fmt.Errorf("sncf: %w", err)
	}

	trains := make([]Train, 0, len(resp.Journeys))
	for _, j := range resp.Journeys {
		t, ok, err := toTrain(j)
		if err != nil {
			return nil, fmt.Errorf("sncf: %w", err)
		}
		if ok {
			trains = append(trains, t)
		}
	}
	return trains, nil
}

func toTrain(j journey) (Train, bool, error) {
	var sec *section
	for i := range j.Sections {
		if j.Sections[i].Type == "public_transport" {
			sec = &j.Sections[i]
			break
		}
	}
	if sec == nil {
		return Train{}, false, nil
	}

	dep, err := time.Parse(navitiaTimeLayout, j.DepartureDateTime)
	if err != nil {
		return Train{}, false, fmt.Errorf("invalid departure time %q: %w", j.DepartureDateTime, err)
	}
	arr, err := time.Parse(navitiaTimeLayout, j.ArrivalDateTime)
	if err != nil {
		return Train{}, false, fmt.Errorf("invalid arrival time %q: %w", j.ArrivalDateTime, err)
	}

	t := Train{
		Departure:       stopOf(sec.From, dep),
		Arrival:         stopOf(sec.To, arr),
		DurationMinutes: j.Duration / 60,
		Company:         "SNCF",
		Transfers:       j.NbTransfers,
		Price:           ParseFare(j.Fare),
	}
	if d := sec.DisplayInformations; d != nil {
		t.TrainType = d.CommercialMode
		t.TrainNumber = d.Headsign
		if d.Network != "" {
			t.Company = d.Network
		}
	}
	if j.CO2Emission != nil {
		if v, ok := j.CO2Emission.Value.(float64); ok {
			t.CO2Emission = v
		}
	}
	return t, true, nil
}

func stopOf(p *place, at time.Time) Stop {
	s := Stop{Time: at.Format("15:04")}
	if p != nil && p.StopPoint != nil {
		s.Station = p.StopPoint.Name
		s.City = p.StopPoint.Label
	}
	return s
}

// ParseFare extracts the total and the ticket links of a navitia fare.
func ParseFare(f *fare) Fare {
	if f == nil || !f.Found {
		return Fare{Found: false, Total: "N/A", Currency: "EUR", Tickets: []Ticket{}}
	}

	out := Fare{Found: true, Total: "N/A", Currency: "EUR", Tickets: []Ticket{}}
	if f.Total != nil {
		out.Total = amountValue(f.Total)
		if f.Total.Currency != "" {
			out.Currency = f.Total.Currency
		}
	}

	for _, link := range f.Links {
		if !strings.Contains(link.ID, "ticket") {
			continue
		}
		t := Ticket{ID: link.ID, Name: link.Name, Cost: "N/A", Currency: "EUR"}
		if t.Name == "" {
			t.Name = "N/A"
		}
		if link.Cost != nil {
			t.Cost = amountValue(link.Cost)
			if link.Cost.Currency != "" {
				t.Currency = link.Cost.Currency
			}
		}
		out.Tickets = append(out.Tickets, t)
	}
	return out
}

func amountValue(a *amount) string {
	switch v := a.Value.(type) {
	case nil:
		return "N/A"
	case string:
		if v == "" {
			return "N/A"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
