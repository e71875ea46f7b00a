package models

import "time"

// Customer is a Zalo mini-app user who can place orders.
type Customer struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	PhoneNumber *string   `gorm:"column:phone_number;uniqueIndex" json:"phone_number,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
