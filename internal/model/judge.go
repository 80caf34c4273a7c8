package model

import "time"

// Specialization is the judge's area of expertise.
type Specialization string

const (
	SpecWeb        Specialization = "web"
	SpecMobile     Specialization = "mobile"
	SpecAI         Specialization = "ai"
	SpecBlockchain Specialization = "blockchain"
	SpecIoT        Specialization = "iot"
	SpecGame       Specialization = "game"
	SpecGeneral    Specialization = "general"
)

// Valid reports whether s is a known specialization.
func (s Specialization) Valid() bool {
	switch s {
	case SpecWeb, SpecMobile, SpecAI, SpecBlockchain, SpecIoT, SpecGame, SpecGeneral:
		return true
	}
	return false
}

// Judge is a separate identity class that scores submissions and awards badges.
// Judges authenticate with bearer tokens only and never share sessions with users.
type Judge struct {
	ID             string         `json:"id"             bson:"_id"`
	Name           string         `json:"name"           bson:"name"`
	Email          string         `json:"email"          bson:"email"`
	PasswordHash   string         `json:"-"              bson:"passwordHash"`
	JudgeCode      string         `json:"-"              bson:"judgeCode"` // unique
	Avatar         string         `json:"avatar"         bson:"avatar"`
	Specialization Specialization `json:"specialization" bson:"specialization"`
	IsActive       bool           `json:"isActive"       bson:"isActive"`
	LastLogin      *time.Time     `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"      bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"      bson:"updatedAt"`
	Version        int64          `json:"-"              bson:"version"`
}
