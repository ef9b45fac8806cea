package dto

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
	Role     string  `json:"role"` // buyer/agent
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreatePropertyRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	Price       string  `json:"price"`
	Currency    string  `json:"currency,omitempty"`
}

type UpdatePropertyRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	Price       string  `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	Status      *string `json:"status,omitempty"` // active/sold/delisted
}

type CreateReviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

type OfferDocumentRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type SubmitOfferRequest struct {
	PropertyID string                 `json:"property_id"`
	Amount     string                 `json:"amount"`
	Terms      string                 `json:"terms"`
	Message    *string                `json:"message,omitempty"`
	Documents  []OfferDocumentRequest `json:"documents,omitempty"`
}

type PaymentWebhookRequest struct {
	GatewayReference string `json:"gateway_reference"`
	OfferID          string `json:"offer_id,omitempty"` // echoed from the capture request
	Status           string `json:"status"`             // processing/completed/failed
}
