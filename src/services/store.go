package services

import (
	"apaeventus/src/models"
	"apaeventus/src/types"
	"context"
	"time"
)

// ClaimLease is how long a processing claim stays owned. A claim left in
// processing for longer belongs to a delivery that died and may be taken over.
const ClaimLease = 15 * time.Minute

// Store is the persistence surface the services need. Implementations must
// return gorm.ErrRecordNotFound for missing rows.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	FindTicket(ctx context.Context, id uint) (*models.Ticket, error)
	LockTicket(ctx context.Context, id uint) (*models.Ticket, error)
	ListAvailableTickets(ctx context.Context, now time.Time) ([]models.TicketSummary, error)
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	UpdateTicket(ctx context.Context, id uint, updates map[string]any) (int64, error)

	FindUser(ctx context.Context, id uint) (*models.User, error)

	CountSales(ctx context.Context, ticketID uint) (int64, error)
	CountUsedSales(ctx context.Context, ticketID uint) (int64, error)
	CreateSale(ctx context.Context, sale *models.Sale) error
	FindSale(ctx context.Context, id string) (*models.Sale, error)
	FindSalesByUser(ctx context.Context, userID uint) ([]models.Sale, error)
	FindSalesBySession(ctx context.Context, sessionID string) ([]models.Sale, error)
	FindSalesForFulfillment(ctx context.Context, ids []string) ([]models.Sale, error)
	MarkSalePaid(ctx context.Context, id string, artifacts types.SaleArtifacts) error
	UpdateSaleUsage(ctx context.Context, id string, used bool) (int64, error)

	CreateCheckoutSession(ctx context.Context, session *models.CheckoutSession) error
	ClaimCheckoutSession(ctx context.Context, session *models.CheckoutSession) (bool, error)
	FinishCheckoutSession(ctx context.Context, id string, status types.CheckoutStatus, lastError *string) error
	ExpireCheckoutSession(ctx context.Context, id string) (int64, error)
}

// SalesCounter is the read the inventory check depends on.
type SalesCounter interface {
	CountSales(ctx context.Context, ticketID uint) (int64, error)
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params types.CheckoutSessionParams) (*types.GatewaySession, error)
	RetrieveSession(ctx context.Context, id string) (*types.GatewaySession, error)
	ExpireSession(ctx context.Context, id string) error
	CreatePrice(ctx context.Context, params types.CreatePriceParams) (string, error)
	ConstructEvent(payload []byte, signature string) (*types.GatewayEvent, error)
}

type Storage interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, msg types.EmailMessage) error
}

type Publisher interface {
	PublishSaleFulfilled(ctx context.Context, msg types.SaleFulfilledMessage) error
}

// EventDeduplicator drops concurrent deliveries of the same gateway event.
type EventDeduplicator interface {
	Acquire(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type TicketRenderer interface {
	QRCode(content string) ([]byte, error)
	RenderTicket(page types.TicketPage) ([]byte, error)
	NewDocument() TicketDocument
}

// TicketDocument accumulates pages into one multi-page PDF.
type TicketDocument interface {
	AddPage(page types.TicketPage) error
	Bytes() ([]byte, error)
}
