package search

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of a search.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusNoResults Status = "no_results"
	StatusNoData    Status = "no_data"
	StatusError     Status = "error"
)

// Envelope is the result shape every finder returns to the model.
// Data is set only on success; Message only otherwise.
type Envelope struct {
	Status       Status         `json:"status"`
	Data         any            `json:"data,omitempty"`
	TotalFound   int            `json:"total_found,omitempty"`
	Message      string         `json:"message,omitempty"`
	SearchParams map[string]any `json:"search_params"`
}

// Success wraps a result payload. total is the match count before any cap was applied.
func Success(data any, total int, params map[string]any) *Envelope {
	return &Envelope{Status: StatusSuccess, Data: data, TotalFound: total, SearchParams: redact(params)}
}

// NoResults reports a well-formed upstream answer with nothing in it.
func NoResults(message string, params map[string]any) *Envelope {
	return &Envelope{Status: StatusNoResults, Message: message, SearchParams: redact(params)}
}

// NoData reports an empty upstream answer.
func NoData(message string, params map[string]any) *Envelope {
	return &Envelope{Status: StatusNoData, Message: message, SearchParams: redact(params)}
}

// Failure reports an upstream or transport error.
func Failure(err error, params map[string]any) *Envelope {
	return &Envelope{Status: StatusError, Message: err.Error(), SearchParams: redact(params)}
}

// OK reports whether the search succeeded.
func (e *Envelope) OK() bool {
	return e.Status == StatusSuccess
}

// String renders the envelope as the JSON text handed back to the model.
func (e *Envelope) String() string {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":%q}`, err.Error())
	}
	return string(b)
}

var secretKeys = map[string]bool{"api_key": true, "key": true}

func redact(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if secretKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}
