package responses

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Retryable is set for codes a client may
// resend unchanged, such as PAYMENT_FAILED once funds are approved.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
