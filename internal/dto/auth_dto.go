package dto

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// TokenResponse carries the access/refresh token pair. Refresh is omitted on
// the refresh endpoint, which only re-issues an access token.
type TokenResponse struct {
	Access  string        `json:"access"`
	Refresh string        `json:"refresh,omitempty"`
	User    *UserResponse `json:"user,omitempty"`
}
