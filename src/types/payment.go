package types

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EVENT_CHECKOUT_COMPLETED = "checkout.session.completed"
	EVENT_CHECKOUT_EXPIRED   = "checkout.session.expired"
)

type CheckoutSessionParams struct {
	TicketID    uint
	UserID      uint
	Quantity    int
	Title       string
	Description string
	ImageURL    *string
	UnitAmount  int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Email       string
}

type GatewaySession struct {
	ID            string
	URL           string
	PaymentStatus string
	Status        string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

type GatewayEvent struct {
	ID       string
	Type     string
	ObjectID string
	Created  time.Time
}

type CreatePriceParams struct {
	Name        string
	Description string
	UnitAmount  int64
	Currency    string
	ImageURL    *string
}

type EmailMessage struct {
	To               string
	Subject          string
	Body             string
	AttachmentBase64 string
	AttachmentName   string
}

type SaleFulfilledMessage struct {
	SessionID string   `json:"sessionId"`
	TicketID  uint     `json:"ticketId"`
	UserID    uint     `json:"userId"`
	SaleIDs   []string `json:"saleIds"`
}

type SaleArtifacts struct {
	PdfURL        string
	QrCodeURL     string
	QrCodeDataURL string
}

// TicketPage holds what gets printed on one admission ticket.
type TicketPage struct {
	SaleID       string
	Organization string
	EventTitle   string
	EventDate    time.Time
	BuyerName    string
	BuyerEmail   string
	BuyerPhone   *string
	Price        decimal.Decimal
	QRCodePNG    []byte
}
