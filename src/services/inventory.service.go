package services

import (
	"apaeventus/src/models"
	"apaeventus/src/types"
	"context"
	"fmt"
	"time"
)

// InventoryService decides whether a ticket still has room for qty units.
// Sold units are always counted live from the sale rows.
type InventoryService struct {
	now func() time.Time
}

func NewInventoryService(now func() time.Time) *InventoryService {
	if now == nil {
		now = time.Now
	}
	return &InventoryService{now: now}
}

func (s *InventoryService) Now() time.Time {
	return s.now()
}

func (s *InventoryService) CheckAvailability(ctx context.Context, counter SalesCounter, ticket *models.Ticket, qty int) error {
	if qty < 1 {
		return types.Validation(types.ERR_INVALID_QUANTITY)
	}
	if !ticket.IsActive {
		return types.Conflict(types.ERR_TICKET_INACTIVE)
	}
	if !ticket.EventDate.After(s.now()) {
		return types.Validation(types.ERR_TICKET_EXPIRED)
	}
	sold, err := counter.CountSales(ctx, ticket.ID)
	if err != nil {
		return fmt.Errorf("error counting sales for ticket %d: %w", ticket.ID, err)
	}
	if sold >= int64(ticket.Quantity) {
		return types.Conflict(types.ERR_TICKET_SOLD_OUT)
	}
	if sold+int64(qty) > int64(ticket.Quantity) {
		return types.Conflict(types.ERR_TICKET_QTY_EXCEEDED)
	}
	return nil
}
