// Package session stores and validates the user's relay session token,
// encrypted at rest.
package session

// Info is the session snapshot consumers act on. Valid and Error are the
// whole contract: callers never see the underlying storage or crypto
// failures except as the Error text.
type Info struct {
	Username  string `json:"username"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	UserID    string `json:"user_id"`
	Valid     bool   `json:"-"`
	Error     string `json:"-"`
}

// Provider is the session surface the orchestrator consumes.
type Provider interface {
	Load() Info
	Save(Info) error
	HasValidSession() bool
	ClearSession() error
}
