package services

import (
	"apaeventus/src/models"
	"apaeventus/src/types"
	"apaeventus/src/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateTicketInput struct {
	Title       string
	Description string
	EventDate   time.Time
	Quantity    int
	Price       decimal.Decimal
	ImageURL    *string
}

// TicketService serves the ticket catalog.
type TicketService struct {
	store     Store
	gateway   PaymentGateway
	inventory *InventoryService
	currency  string
}

func NewTicketService(store Store, gateway PaymentGateway, inventory *InventoryService, currency string) *TicketService {
	return &TicketService{store: store, gateway: gateway, inventory: inventory, currency: currency}
}

// FindAvailable lists tickets that can still be bought, best sellers first.
func (s *TicketService) FindAvailable(ctx context.Context) ([]*types.TicketResponse, error) {
	tickets, err := s.store.ListAvailableTickets(ctx, s.inventory.Now())
	if err != nil {
		return nil, fmt.Errorf("error listing tickets: %w", err)
	}
	res := make([]*types.TicketResponse, 0, len(tickets))
	for i := range tickets {
		res = append(res, tickets[i].ToResponse(tickets[i].Sold))
	}
	return res, nil
}

func (s *TicketService) FindOne(ctx context.Context, id uint) (*types.TicketResponse, error) {
	ticket, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	sold, err := s.store.CountSales(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error counting sales for ticket %d: %w", id, err)
	}
	return ticket.ToResponse(sold), nil
}

func (s *TicketService) Create(ctx context.Context, in CreateTicketInput) (*types.TicketResponse, error) {
	if in.EventDate.Before(s.inventory.Now().Add(24 * time.Hour)) {
		return nil, types.Validation(types.ERR_EVENT_DATE_TOO_SOON)
	}
	if !in.Price.IsPositive() {
		return nil, types.Validation(types.ERR_INVALID_TICKET_PRICE)
	}
	if in.Quantity < 1 {
		return nil, types.Validation(types.ERR_INVALID_QUANTITY)
	}
	priceID, err := s.gateway.CreatePrice(ctx, types.CreatePriceParams{
		Name:        in.Title,
		Description: in.Description,
		UnitAmount:  utils.ToMinorUnits(in.Price),
		Currency:    s.currency,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		log.Printf("Error creating Stripe price for %s: %s\n", in.Title, err.Error())
		return nil, types.ExternalDependency("Could not create ticket price", err)
	}
	ticket := models.Ticket{
		Title:         in.Title,
		Description:   in.Description,
		EventDate:     in.EventDate.UTC(),
		ImageURL:      in.ImageURL,
		Quantity:      in.Quantity,
		Price:         in.Price.Round(2),
		IsActive:      true,
		StripePriceId: &priceID,
	}
	if err := s.store.CreateTicket(ctx, &ticket); err != nil {
		return nil, fmt.Errorf("error creating ticket: %w", err)
	}
	log.Printf("Created ticket %d (%s)\n", ticket.ID, ticket.Title)
	return ticket.ToResponse(0), nil
}

func (s *TicketService) SetActive(ctx context.Context, id uint, active bool) error {
	return s.update(ctx, id, map[string]any{"is_active": active})
}

// Delete hides the ticket from the catalog. Sales keep their reference.
func (s *TicketService) Delete(ctx context.Context, id uint) error {
	return s.update(ctx, id, map[string]any{"is_deleted": true, "is_active": false})
}

func (s *TicketService) CountSold(ctx context.Context, id uint) (int64, error) {
	if _, err := s.find(ctx, id); err != nil {
		return 0, err
	}
	return s.store.CountSales(ctx, id)
}

func (s *TicketService) CountUsed(ctx context.Context, id uint) (int64, error) {
	if _, err := s.find(ctx, id); err != nil {
		return 0, err
	}
	return s.store.CountUsedSales(ctx, id)
}

func (s *TicketService) find(ctx context.Context, id uint) (*models.Ticket, error) {
	ticket, err := s.store.FindTicket(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound(types.ERR_TICKET_NOT_FOUND)
		}
		return nil, fmt.Errorf("error retrieving ticket %d: %w", id, err)
	}
	return ticket, nil
}

func (s *TicketService) update(ctx context.Context, id uint, updates map[string]any) error {
	affected, err := s.store.UpdateTicket(ctx, id, updates)
	if err != nil {
		return fmt.Errorf("error updating ticket %d: %w", id, err)
	}
	if affected == 0 {
		return types.NotFound(types.ERR_TICKET_NOT_FOUND)
	}
	return nil
}
