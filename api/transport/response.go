package transport

import "encoding/json"

// Envelope wraps every board API response. Status is "success" or "error".
// On failures Code carries the machine-readable board error code (NOT_FOUND,
// FORBIDDEN, INVALID, ...) so clients can branch without parsing the message.
// Meta is a side channel for values that are not the resource itself, such as
// reconcile counters or dependency health details.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: "success", Data: data, Meta: meta}
}

func NewError(code string, detail interface{}, meta interface{}) Envelope {
	return Envelope{Status: "error", Code: code, Error: detail, Meta: meta}
}

// Invalid is the envelope handlers return for malformed request payloads.
func Invalid(detail string) Envelope {
	return NewError("INVALID", detail, nil)
}

// String renders the envelope as JSON for log lines. Marshal failures
// degrade to an empty object rather than propagating.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
