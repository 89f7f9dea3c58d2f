package models

import "time"

// Farmer is a registered account. Rows are created by registration only.
type Farmer struct {
	ID        uint      `gorm:"primaryKey"                    json:"id"`
	Name      string    `gorm:"size:150;not null"             json:"name"`
	Email     string    `gorm:"size:150;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:255;not null"             json:"-"` // argon2id PHC string
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
