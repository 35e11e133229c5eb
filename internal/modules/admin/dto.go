package admin

import "huntbooking/internal/modules/fulfillment"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,max=500"`
}

type EditBookingRequest = fulfillment.EditCustomerRequest
