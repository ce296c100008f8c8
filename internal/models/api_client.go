package models

import "time"

// APIClient is a caller allowed to request access tokens.
type APIClient struct {
	ID           uint   `gorm:"primarykey"`
	ClientID     string `gorm:"uniqueIndex;not null"`
	SecretHash   string `gorm:"not null"`
	Name         string
	Scopes       string `gorm:"default:'payments:read payments:write'"`
	TokenVersion int    `gorm:"default:1"`
	Disabled     bool   `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
