package auth

import "github.com/golang-jwt/jwt/v5"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AdminClaims mirrors the tokens issued by the mini-app auth service. Field
// names follow that issuer, which is why the admin flags are camelCase.
type AdminClaims struct {
	AppID       string `json:"app_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	IsAdmin     bool   `json:"isAdmin,omitempty"`
	SystemAdmin bool   `json:"systemAdmin,omitempty"`
	Type        string `json:"type"`
	jwt.RegisteredClaims
}

// HasAdminAccess reports whether either admin flag is set.
func (c AdminClaims) HasAdminAccess() bool {
	return c.IsAdmin || c.SystemAdmin
}

// Subject returns the best identifier for logs.
func (c AdminClaims) Subject() string {
	if c.SystemAdmin && c.UserID == "" {
		return "system-admin"
	}
	return c.UserID
}
