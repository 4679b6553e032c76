package models

import (
	"apaeventus/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sale is one admission unit. Buying n tickets yields n rows.
type Sale struct {
	ID                string              `gorm:"primarykey;type:uuid" json:"id"`
	TicketID          uint                `gorm:"not null;index" json:"ticketId"`
	UserID            uint                `gorm:"not null;index" json:"userId"`
	PaymentStatus     types.PaymentStatus `gorm:"type:varchar(16);default:'pending';not null" json:"paymentStatus"`
	Used              bool                `gorm:"default:false;not null" json:"used"`
	CheckoutSessionID *string             `gorm:"index" json:"-"`
	PdfURL            *string             `json:"pdfUrl"`
	QrCodeURL         *string             `json:"qrCodeUrl"`
	QrCodeDataURL     *string             `gorm:"type:text" json:"qrCodeDataUrl"`

	Ticket *Ticket `json:"ticket,omitempty"`
	User   *User   `json:"user,omitempty"`

	types.Timestamps
}

func (Sale) TableName() string {
	return "ticket_sales"
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.PaymentStatus == "" {
		s.PaymentStatus = types.PAYMENT_PENDING
	}
	return nil
}

func (s *Sale) IsPaid() bool {
	return s.PaymentStatus == types.PAYMENT_PAID
}

func (s *Sale) ToResponse() *types.TicketSaleResponse {
	res := &types.TicketSaleResponse{
		ID:            s.ID,
		TicketID:      s.TicketID,
		UserID:        s.UserID,
		Used:          s.Used,
		PaymentStatus: s.PaymentStatus,
		PdfURL:        s.PdfURL,
		QrCodeURL:     s.QrCodeURL,
		QrCodeDataURL: s.QrCodeDataURL,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Ticket != nil {
		res.Ticket = s.Ticket.ToResponse(0)
	}
	return res
}
