package jwt

import (
	"time"
)

const RefreshTokenTTL = 24 * 30 * time.Hour

var (
	// RoleSecrets maps each role to its HMAC signing secret.
	RoleSecrets = map[Role]string{}

	// AccessTokenTTL is the default lifetime of tenant access tokens.
	AccessTokenTTL = 7 * 24 * time.Hour

	refreshStore RefreshStore
)

// Configure installs signing secrets and the refresh token store. Binaries call
// it once at start up; tests set RoleSecrets directly.
func Configure(tenantSecret, adminSecret string, accessTTL time.Duration, store RefreshStore) {
	RoleSecrets[RoleTenant] = tenantSecret
	RoleSecrets[RoleAdmin] = adminSecret
	if accessTTL > 0 {
		AccessTokenTTL = accessTTL
	}
	refreshStore = store
}
