package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"waypoint/internal/config"
	"waypoint/internal/tool"
	"waypoint/internal/tool/finder"
)

const (
	DomainTravel = "travel"
	DomainJobs   = "jobs"
)

// Domain describes one assistant: which tools it offers, how its system
// prompt is built and which configuration keys are forced into tool calls.
type Domain struct {
	Name  string
	Tools []string

	// Interrupt pauses the session before the email step instead of finishing.
	Interrupt bool

	Prompt func(cfg config.AgentConfig, now time.Time) string

	// Enrich returns the keys merged into the "params" object of a call to
	// toolName, or nil when the tool is not enriched.
	Enrich func(cfg config.AgentConfig, toolName string) map[string]any
}

// Travel searches flights, hotels, trains and rentals, then offers an email summary.
func Travel() Domain {
	return Domain{
		Name: DomainTravel,
		Tools: []string{
			finder.FlightsFinder,
			finder.HotelsFinder,
			finder.TrainsFinder,
			finder.AirbnbFinder,
		},
		Interrupt: true,
		Prompt:    travelPrompt,
		Enrich:    travelEnrichment,
	}
}

// Jobs searches job postings and finishes without an email step.
func Jobs() Domain {
	return Domain{
		Name:   DomainJobs,
		Tools:  []string{finder.JobsFinder},
		Prompt: jobsPrompt,
		Enrich: jobsEnrichment,
	}
}

// WithTools returns a copy of d that also offers names.
func (d Domain) WithTools(names ...string) Domain {
	d.Tools = append(append([]string(nil), d.Tools...), names...)
	return d
}

// Domains returns every built-in domain.
func Domains() []Domain {
	return []Domain{Travel(), Jobs()}
}

func travelPrompt(cfg config.AgentConfig, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, travelPromptTemplate, now.Year(), int(now.Month()))
	if len(cfg.Preferences) > 0 {
		b.WriteString("\nTravel preferences: " + strings.Join(cfg.Preferences, ", "))
	}
	fmt.Fprintf(&b, "\nPreferred currency: %s", cfg.Currency)
	fmt.Fprintf(&b, "\nSearch limits: up to %d hotels and %d flights", cfg.MaxHotels, cfg.MaxFlights)
	return b.String()
}

func jobsPrompt(cfg config.AgentConfig, now time.Time) string {
	var b strings.Builder
	b.WriteString(jobsPromptTemplate)
	if len(cfg.Preferences) > 0 {
		b.WriteString("\nJob preferences: " + strings.Join(cfg.Preferences, ", "))
	}
	fmt.Fprintf(&b, "\nSearch limits: up to %d jobs per search", cfg.MaxJobs)
	return b.String()
}

func travelEnrichment(cfg config.AgentConfig, toolName string) map[string]any {
	switch toolName {
	case finder.FlightsFinder:
		return map[string]any{
			"max_results": cfg.MaxFlights,
			"currency":    cfg.Currency,
			"preferences": nonNil(cfg.Preferences),
			"sort_by":     "price",
		}
	case finder.HotelsFinder:
		return map[string]any{
			"max_results": cfg.MaxHotels,
			"currency":    cfg.Currency,
			"preferences": nonNil(cfg.Preferences),
		}
	case finder.TrainsFinder:
		return map[string]any{"max_results": cfg.MaxTrains}
	case finder.AirbnbFinder:
		return map[string]any{
			"max_results": cfg.MaxRentals,
			"currency":    cfg.Currency,
		}
	}
	return nil
}

func jobsEnrichment(cfg config.AgentConfig, toolName string) map[string]any {
	if toolName != finder.JobsFinder {
		return nil
	}
	return map[string]any{
		"required_skills": nonNil(cfg.RequiredSkills),
		"remote_options":  nonNil(cfg.RemoteOptions),
		"contract_type":   cfg.ContractType,
		"max_results":     cfg.MaxJobs,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// enricher binds the domain's enrichment to one configuration.
func (d Domain) enricher(cfg config.AgentConfig) tool.Enricher {
	return func(toolName, arguments string) (string, error) {
		if d.Enrich == nil {
			return arguments, nil
		}
		extra := d.Enrich(cfg, toolName)
		if extra == nil {
			return arguments, nil
		}
		return MergeParams(arguments, extra)
	}
}

// MergeParams merges extra into the "params" object of the JSON arguments,
// creating it when absent. Keys in extra overwrite the model's values.
func MergeParams(arguments string, extra map[string]any) (string, error) {
	args := map[string]any{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("invalid tool arguments: %w", err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	params, ok := args["params"].(map[string]any)
	if !ok {
		if v, exists := args["params"]; exists && v != nil {
			return "", errors.New("invalid tool arguments: params must be an object")
		}
		params = map[string]any{}
		args["params"] = params
	}
	for k, v := range extra {
		params[k] = v
	}

	out, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	return string(out), nil
}
