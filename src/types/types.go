package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"createdAt,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updatedAt,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Metadata map[string]string

func (a Metadata) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *Metadata) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type PaymentStatus string

const (
	PAYMENT_PENDING PaymentStatus = "pending"
	PAYMENT_PAID    PaymentStatus = "paid"
)

type CheckoutStatus string

const (
	CHECKOUT_OPEN       CheckoutStatus = "open"
	CHECKOUT_PROCESSING CheckoutStatus = "processing"
	CHECKOUT_FULFILLED  CheckoutStatus = "fulfilled"
	CHECKOUT_FAILED     CheckoutStatus = "failed"
	CHECKOUT_EXPIRED    CheckoutStatus = "expired"
)

const (
	ROLE_USER  = "USER"
	ROLE_ADMIN = "ADMIN"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type SaleRequestParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type CreateSaleRequestBody struct {
	TicketID   uint   `json:"ticketId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	SuccessURL string `json:"successUrl,omitempty" binding:"omitempty,url"`
	CancelURL  string `json:"cancelUrl,omitempty" binding:"omitempty,url"`
}

type UpdateSaleUsageRequestBody struct {
	SaleID string `json:"saleId" binding:"required,uuid"`
}

type CreateTicketRequestBody struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description,omitempty"`
	EventDate   string          `json:"eventDate" binding:"required,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	ImageURL    *string         `json:"imageUrl,omitempty" binding:"omitempty,url"`
}

type EnableDisableTicketRequestBody struct {
	ID       uint `json:"id" binding:"required"`
	IsActive bool `json:"isActive"`
}

type TicketResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	EventDate   time.Time       `json:"eventDate"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	Quantity    int             `json:"quantity"`
	Sold        int64           `json:"sold"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type TicketSaleResponse struct {
	ID            string          `json:"id"`
	TicketID      uint            `json:"ticketId"`
	UserID        uint            `json:"userId"`
	Used          bool            `json:"used"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PdfURL        *string         `json:"pdfUrl"`
	QrCodeURL     *string         `json:"qrCodeUrl"`
	QrCodeDataURL *string         `json:"qrCodeDataUrl"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Ticket        *TicketResponse `json:"ticket,omitempty"`
}

type CheckoutResponse struct {
	SessionID string   `json:"sessionId"`
	URL       string   `json:"url"`
	SaleIDs   []string `json:"saleIds"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}
