package types

// SuccessEnvelope wraps every 2xx JSON body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing half of a failed request. RequestID echoes
// X-Request-Id so support can find the matching log lines.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func Success(data any) SuccessEnvelope {
	return SuccessEnvelope{Data: data}
}

func Failure(code, message, requestID string) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Code: code, Message: message, RequestID: requestID}}
}
