package models

type UtteranceRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

type CheckoutActionRequest struct {
	CheckoutID string `json:"checkout_id" binding:"required,max=64"`
	Email      string `json:"email" binding:"omitempty,max=254"`
}

type AdminLoginRequest struct {
	Password string `json:"password" binding:"required,max=128"`
}
