package sign_in

import "github.com/m04kA/SMC-SaveSync/internal/auth"

// SignInRequest HTTP request model
type SignInRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
	Role   string `json:"role,omitempty" validate:"omitempty,oneof=provider admin"`
}

// ToIdentity конвертирует запрос в личность сессии
func (r *SignInRequest) ToIdentity() auth.Identity {
	return auth.Identity{UserID: r.UserID, Role: r.Role}
}
