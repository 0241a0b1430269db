package model

import "time"

// User owns meals. Accounts come from GitHub OAuth (GitHubID set) or from a
// local profile registered with a login name and password (PasswordHash set).
//
// Login is unique across both kinds: for GitHub users it is the GitHub
// username, for local profiles the chosen profile name.
type User struct {
	ID           string    `json:"id"        db:"id"`
	GitHubID     int64     `json:"githubId,omitempty" db:"github_id"` // 0 for local profiles
	Login        string    `json:"login"     db:"login"`
	Email        string    `json:"email"     db:"email"`      // may be empty
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"` // may be empty
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
