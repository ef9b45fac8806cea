package dto

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// RespondResponse reports the outcome of an agent decision. PaymentError is
// set when the offer was accepted but the capture could not be started; the
// acceptance stands and the capture is retried out of band.
type RespondResponse struct {
	Offer        any    `json:"offer"`
	PaymentError string `json:"payment_error,omitempty"`
}
