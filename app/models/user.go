package models

import "time"

// User mirrors identity-provider users that completed payment setup. Presence
// of a row means the identity record was marked registered at write time; the
// identity store stays the source of truth for the flag itself.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthSub   string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_users_auth_sub" json:"auth_sub"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
