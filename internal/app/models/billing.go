package models

type CheckoutRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=100"`
}

// CheckoutSession is what the client needs to redirect the user to the hosted payment page.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
