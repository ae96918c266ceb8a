package jwt

type Role int

const (
	RoleTenant Role = iota + 1
	RoleAdmin
)

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// User is the subject carried inside a token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
