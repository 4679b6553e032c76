package models

import (
	"apaeventus/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Title         string          `gorm:"not null" json:"title"`
	Description   string          `json:"description,omitempty"`
	EventDate     time.Time       `gorm:"not null;index" json:"eventDate"`
	ImageURL      *string         `json:"imageUrl,omitempty"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	IsActive      bool            `gorm:"default:true" json:"isActive"`
	IsDeleted     bool            `gorm:"default:false" json:"-"`
	StripePriceId *string         `json:"-"`

	Sales []Sale `gorm:"foreignKey:TicketID" json:"sales,omitempty"`

	types.Timestamps
}

func (t *Ticket) ToResponse(sold int64) *types.TicketResponse {
	return &types.TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		EventDate:   t.EventDate,
		ImageURL:    t.ImageURL,
		Quantity:    t.Quantity,
		Sold:        sold,
		Price:       t.Price,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
	}
}

// TicketSummary is a Ticket with its live sale count.
type TicketSummary struct {
	Ticket
	Sold int64 `gorm:"column:sold"`
}
