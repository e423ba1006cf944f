package models

import (
	"time"

	"gorm.io/gorm"
)

// Роли пользователей
const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

// User представляет оператора склада
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null;size:100"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string    `json:"-" gorm:"not null"` // Скрываем хэш пароля в JSON
	Role         string    `json:"role" gorm:"size:20;not null;default:viewer"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin проверяет, имеет ли пользователь права администратора
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeCreate хук для установки роли по умолчанию
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleViewer
	}
	return nil
}
