package types

// SuccessEnvelope wraps every successful API response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ListMeta carries the pagination window a list response was built from.
type ListMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ListEnvelope wraps paginated collection responses.
type ListEnvelope struct {
	Data any      `json:"data"`
	Meta ListMeta `json:"meta"`
}

// APIError is the public shape of a request failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
