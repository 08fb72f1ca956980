// Package auth gates privileged bot commands.
package auth

import "crypto/subtle"

// Config is the admin policy. A zero AdminID disables privileged commands.
type Config struct {
	AdminID int64
	Secret  string
}

// Authorizer is an immutable policy built from Config.
type Authorizer struct {
	adminID int64
	secret  string
}

func New(cfg Config) *Authorizer {
	return &Authorizer{adminID: cfg.AdminID, secret: cfg.Secret}
}

// Enabled reports whether any sender could ever be authorized.
func (a *Authorizer) Enabled() bool { return a != nil && a.adminID != 0 }

// Allowed reports whether senderID may run a privileged command.
//
// The caller gets a single yes/no; it never learns whether the sender or the
// secret was wrong.
func (a *Authorizer) Allowed(senderID int64, secret string) bool {
	if !a.Enabled() || senderID != a.adminID {
		return false
	}
	if a.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(a.secret)) == 1
}
