package models

import (
	"apaeventus/src/types"
)

// CheckoutSession mirrors a Stripe checkout session. Its primary key is the
// Stripe session id, which makes the reconciliation claim atomic.
type CheckoutSession struct {
	ID          string               `gorm:"primarykey" json:"id"`
	TicketID    uint                 `gorm:"index" json:"ticketId"`
	UserID      uint                 `gorm:"index" json:"userId"`
	Quantity    int                  `json:"quantity"`
	AmountTotal int64                `json:"amountTotal"`
	Currency    string               `json:"currency"`
	URL         string               `json:"url,omitempty"`
	Status      types.CheckoutStatus `gorm:"type:varchar(16);default:'open';not null" json:"status"`
	Attempts    int                  `gorm:"default:0" json:"attempts"`
	LastError   *string              `json:"lastError,omitempty"`
	Metadata    types.Metadata       `gorm:"type:jsonb" json:"metadata,omitempty"`

	types.Timestamps
}
