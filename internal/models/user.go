package models

import (
	"time"
)

// PlatformUser is one row of the admin roster. Server-owned; the client never
// patches these fields locally, it re-fetches after every mutation.
type PlatformUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	JoinedAt    time.Time  `json:"joinedAt"`
	BackupCount int        `json:"backupCount"`
	TestCount   int        `json:"testCount"`
	LastUpload  *time.Time `json:"lastUpload,omitempty"`
	LastTest    *time.Time `json:"lastTest,omitempty"`
	Active      bool       `json:"active"`
}

// UserProfile is the authenticated caller's identity, from GET /users/me.
// Used to validate a stored session token on startup.
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	IsAdmin     bool   `json:"isAdmin"`
}

// AdminStats is the platform-wide aggregate for the admin dashboard.
type AdminStats struct {
	TotalUsers   int `json:"totalUsers"`
	ActiveUsers  int `json:"activeUsers"`
	TotalBackups int `json:"totalBackups"`
	TotalTests   int `json:"totalTests"`
}

// ActivityEntry is one row of the recent-activity feed on the admin dashboard.
type ActivityEntry struct {
	ID        string    `json:"id"`
	UserEmail string    `json:"userEmail"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
