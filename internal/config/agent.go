package config

import (
	"errors"
	"fmt"
	"slices"
)

// AgentConfig is the per-turn agent configuration. It is a value type:
// Merge returns a new value and never mutates the receiver.
type AgentConfig struct {
	Model       string  `yaml:"model" json:"model"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	MaxTurns    int     `yaml:"max_turns" json:"max_turns"`

	Currency    string   `yaml:"currency" json:"currency"`
	Preferences []string `yaml:"preferences" json:"preferences"`

	MaxFlights int `yaml:"max_flights" json:"max_flights"`
	MaxHotels  int `yaml:"max_hotels" json:"max_hotels"`
	MaxRentals int `yaml:"max_rentals" json:"max_rentals"`
	MaxTrains  int `yaml:"max_trains" json:"max_trains"`

	MaxJobs        int      `yaml:"max_jobs" json:"max_jobs"`
	RequiredSkills []string `yaml:"required_skills" json:"required_skills"`
	RemoteOptions  []string `yaml:"remote_options" json:"remote_options"`
	ContractType   string   `yaml:"contract_type" json:"contract_type"`
}

// DefaultAgentConfig mirrors the defaults of the hosted assistant.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Model:        "gpt-4o",
		Temperature:  0.1,
		MaxTurns:     10,
		Currency:     "EUR",
		Preferences:  []string{},
		MaxFlights:   5,
		MaxHotels:    5,
		MaxRentals:   5,
		MaxTrains:    10,
		MaxJobs:      10,
		ContractType: "Prestataire",
	}
}

// Overrides carries optional per-session replacements for AgentConfig fields.
// Nil pointers and nil slices keep the base value.
type Overrides struct {
	Model          *string  `json:"model,omitempty"`
	Temperature    *float32 `json:"temperature,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`
	MaxTurns       *int     `json:"max_turns,omitempty"`
	Currency       *string  `json:"currency,omitempty"`
	Preferences    []string `json:"preferences,omitempty"`
	MaxFlights     *int     `json:"max_flights,omitempty"`
	MaxHotels      *int     `json:"max_hotels,omitempty"`
	MaxRentals     *int     `json:"max_rentals,omitempty"`
	MaxTrains      *int     `json:"max_trains,omitempty"`
	MaxJobs        *int     `json:"max_jobs,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
	RemoteOptions  []string `json:"remote_options,omitempty"`
	ContractType   *string  `json:"contract_type,omitempty"`
}

// Clone returns a deep copy.
func (c AgentConfig) Clone() AgentConfig {
	c.Preferences = slices.Clone(c.Preferences)
	c.RequiredSkills = slices.Clone(c.RequiredSkills)
	c.RemoteOptions = slices.Clone(c.RemoteOptions)
	return c
}

// Merge applies o on top of a copy of c.
func (c AgentConfig) Merge(o *Overrides) AgentConfig {
	out := c.Clone()
	if o == nil {
		return out
	}

	if o.Model != nil {
		out.Model = *o.Model
	}
	if o.Temperature != nil {
		out.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		out.MaxTokens = *o.MaxTokens
	}
	if o.MaxTurns != nil {
		out.MaxTurns = *o.MaxTurns
	}
	if o.Currency != nil {
		out.Currency = *o.Currency
	}
	if o.Preferences != nil {
		out.Preferences = slices.Clone(o.Preferences)
	}
	if o.MaxFlights != nil {
		out.MaxFlights = *o.MaxFlights
	}
	if o.MaxHotels != nil {
		out.MaxHotels = *o.MaxHotels
	}
	if o.MaxRentals != nil {
		out.MaxRentals = *o.MaxRentals
	}
	if o.MaxTrains != nil {
		out.MaxTrains = *o.MaxTrains
	}
	if o.MaxJobs != nil {
		out.MaxJobs = *o.MaxJobs
	}
	if o.RequiredSkills != nil {
		out.RequiredSkills = slices.Clone(o.RequiredSkills)
	}
	if o.RemoteOptions != nil {
		out.RemoteOptions = slices.Clone(o.RemoteOptions)
	}
	if o.ContractType != nil {
		out.ContractType = *o.ContractType
	}
	return out
}

var validRemoteOptions = []string{"REMOTE", "HYBRID", "ON-SITE"}

// Validate checks value ranges.
func (c AgentConfig) Validate() error {
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", c.Temperature)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be at least 1, got %d", c.MaxTurns)
	}
	if c.Currency == "" {
		return errors.New("currency is required")
	}
	caps := map[string]int{
		"max_flights": c.MaxFlights,
		"max_hotels":  c.MaxHotels,
		"max_rentals": c.MaxRentals,
		"max_trains":  c.MaxTrains,
		"max_jobs":    c.MaxJobs,
		"max_tokens":  c.MaxTokens,
	}
	for name, v := range caps {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	for _, opt := range c.RemoteOptions {
		if !slices.Contains(validRemoteOptions, opt) {
			return fmt.Errorf("unknown remote option %q (expected one of %v)", opt, validRemoteOptions)
		}
	}
	return nil
}
