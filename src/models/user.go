package models

import (
	"apaeventus/src/types"
)

type User struct {
	ID        uint    `gorm:"primarykey" json:"id"`
	Name      string  `json:"name,omitempty"`
	Email     string  `gorm:"uniqueIndex" json:"email,omitempty"`
	Cellphone *string `json:"cellphone,omitempty"`
	Role      string  `gorm:"default:'USER'" json:"role,omitempty"`

	Sales []Sale `gorm:"foreignKey:UserID" json:"sales,omitempty"`

	types.Timestamps
}
