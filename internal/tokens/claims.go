package tokens

import "time"

const RoleAdmin = "admin"

type Claims struct {
	Subject   string `json:"sub"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"exp"`
}

func (c *Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// expired treats the boundary second as already expired.
func (c *Claims) expired(now time.Time) bool {
	return c.ExpiresAt == 0 || c.ExpiresAt <= now.Unix()
}
