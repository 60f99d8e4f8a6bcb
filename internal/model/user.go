package model

import "time"

// 用户角色
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// User 平台用户（房源发布者）
type User struct {
	BaseModel
	Email    string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // bcrypt 哈希
	Name     string `gorm:"size:100" json:"name"`

	// user | admin
	Role string `gorm:"size:20;default:'user'" json:"role"`

	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
