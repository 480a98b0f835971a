package types

// SuccessEnvelope wraps every 2xx payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the single error shape clients see: {"error":{"code","message","details"}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
