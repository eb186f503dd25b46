package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

type User struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Username  string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email     string    `gorm:"size:254" json:"-"`
	Role      string    `gorm:"size:20;default:'user';not null" json:"role"` // user, staff, admin
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsStaff() bool {
	return u != nil && (u.Role == RoleStaff || u.Role == RoleAdmin)
}

// Viewer returns the identity the comment core works with.
func (u *User) Viewer() Viewer {
	if u == nil {
		return Anonymous()
	}
	return Viewer{UserID: u.ID, IsStaff: u.IsStaff()}
}
