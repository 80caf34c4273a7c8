// Package model defines the aggregates stored by HackHub and the enums that are
// persisted with them.
//
// Every aggregate carries two sets of struct tags:
//   - `json:"..."` controls the HTTP representation
//   - `bson:"..."` controls the stored document (both the MongoDB and the SQLite
//     stores encode documents through the bson package, so the field names match
//     in either backend)
//
// Fields that must never leave the server (password hashes, reset tokens, the
// optimistic-concurrency version) are tagged `json:"-"`.
package model

import "time"

// User is a registered participant.
//
// Accounts are only created after the email address has been verified (see
// service.AuthService.VerifyEmail) or after a successful GitHub login.
type User struct {
	ID           string `json:"id"           bson:"_id"`
	Name         string `json:"name"         bson:"name"`
	Email        string `json:"email"        bson:"email"` // lower-cased, unique
	PasswordHash string `json:"-"            bson:"passwordHash"`

	// GitHubID is zero for accounts that never logged in through GitHub.
	GitHubID int64 `json:"githubId,omitempty" bson:"githubId,omitempty"`

	Avatar string   `json:"avatar" bson:"avatar"`
	Bio    string   `json:"bio"    bson:"bio"`
	Skills []string `json:"skills" bson:"skills"`

	// Teams mirrors Team.Members: a team id is listed here iff the team lists
	// this user as a member.
	Teams []string `json:"teams" bson:"teams"`

	IsVerified bool       `json:"isVerified"          bson:"isVerified"`
	LastLogin  *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`

	ResetPasswordToken     string     `json:"-" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpiresAt *time.Time `json:"-" bson:"resetPasswordExpiresAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	Version   int64     `json:"-"         bson:"version"`
}

// SubjectID lets a loaded user be passed wherever a caller identity is expected.
func (u *User) SubjectID() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// UserSummary is the public projection of a user used inside other resources
// (team member lists, search results).
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// HasTeam reports whether teamID is recorded in the user's membership list.
func (u *User) HasTeam(teamID string) bool {
	for _, id := range u.Teams {
		if id == teamID {
			return true
		}
	}
	return false
}
