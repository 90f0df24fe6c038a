package models

import "time"

// AgeGroup selects the feature-unlock policy applied to a profile
type AgeGroup string

const (
	AgeGroupChild AgeGroup = "child"
	AgeGroupTeen  AgeGroup = "teen"
	AgeGroupAdult AgeGroup = "adult"
)

// Role is the authorization role carried by a profile
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

// CanManage reports whether the role may change settings of other profiles
func (r Role) CanManage() bool {
	return r == RoleParent || r == RoleAdmin
}

// Profile represents a family member studying on the platform
type Profile struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	AgeGroup       AgeGroup  `json:"age_group" db:"age_group"`
	Role           Role      `json:"role" db:"role"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Card is the scheduling view of a question owned by the question bank
type Card struct {
	ID        int64  `json:"id" db:"id"`
	SubjectID int64  `json:"subject_id" db:"subject_id"`
	Theme     string `json:"theme" db:"theme"`
}
