package coupon

type ValidateQuery struct {
	EventID int64 `form:"event_id" binding:"required,min=1"`
	Tickets int   `form:"tickets" binding:"required,min=1"`
}

type ValidateResponse struct {
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
	Subtotal        int64   `json:"subtotal"`
	Total           int64   `json:"total"`
}
