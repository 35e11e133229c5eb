package payment

type IntentRequest struct {
	BookingID   int64
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Intent is what the booking flow keeps: an opaque reference and the token the client
// uses to reach the hosted checkout (here, the signed payment URL).
type Intent struct {
	PaymentReference string
	ClientToken      string
}

type refundResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}
