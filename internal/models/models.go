package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	Name         string    `gorm:"not null;default:''"       json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"      json:"email"`
	CPF          string    `gorm:"uniqueIndex;size:11"       json:"cpf"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	IsActive     bool      `gorm:"not null"                  json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
