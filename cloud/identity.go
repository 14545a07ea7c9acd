package cloud

// Identity is the authenticated user a session acts as.  Logging in is
// outside this package; any type exposing these two values will do.
type Identity interface {
	Username() string
	SessionCredential() string
}

// Credentials is a plain [Identity].
type Credentials struct {
	User      string
	SessionID string
}

func (c Credentials) Username() string          { return c.User }
func (c Credentials) SessionCredential() string { return c.SessionID }
