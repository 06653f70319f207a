package httpdto

// RegisterRequest is used for POST /auth/register
type RegisterRequest struct {
	Email            string `json:"email" binding:"required"`
	Password         string `json:"password" binding:"required"`
	Role             string `json:"role" binding:"required"`
	FullName         string `json:"fullName,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// LoginRequest is used for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned after register and login
type AuthResponse struct {
	Token string      `json:"token"`
	User  AuthUserDTO `json:"user"`
}

type AuthUserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}
