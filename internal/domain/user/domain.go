package user

import (
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Mail      string    `json:"mail"`
	GoogleID  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
