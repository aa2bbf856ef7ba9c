package models

import "time"

// Role values.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account. The password hash never leaves the server.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User    User   `json:"user"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// UserEvent is published when an account is created, changed or removed.
type UserEvent struct {
	EventType string    `json:"event_type"`
	UserID    uint      `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
