package domain

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Operator string `json:"operator"`
	Password string `json:"password"`
}

// LoginResponse carries the operator access token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Operator    string `json:"operator"`
}
