package services

import (
	"apaeventus/src/models"
	"apaeventus/src/monitoring"
	"apaeventus/src/types"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"gorm.io/gorm"
)

type CreateSaleInput struct {
	TicketID          uint
	UserID            uint
	Quantity          int
	CheckoutSessionID *string
}

// SaleService is the sale ledger: it creates pending rows and answers
// queries about them.
type SaleService struct {
	store     Store
	inventory *InventoryService
}

func NewSaleService(store Store, inventory *InventoryService) *SaleService {
	return &SaleService{store: store, inventory: inventory}
}

// CreatePendingSales reserves qty units in one transaction. Either every row
// is written or none is.
func (s *SaleService) CreatePendingSales(ctx context.Context, in CreateSaleInput) ([]string, error) {
	var ids []string
	err := s.store.Transaction(ctx, func(tx Store) error {
		var err error
		ids, err = s.reserve(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SaleService) reserve(ctx context.Context, tx Store, in CreateSaleInput) ([]string, error) {
	if in.Quantity < 1 {
		return nil, types.Validation(types.ERR_INVALID_QUANTITY)
	}
	ticket, err := tx.LockTicket(ctx, in.TicketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound(types.ERR_TICKET_NOT_FOUND)
		}
		return nil, fmt.Errorf("error retrieving ticket %d: %w", in.TicketID, err)
	}
	if _, err := tx.FindUser(ctx, in.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound(types.ERR_USER_NOT_FOUND)
		}
		return nil, fmt.Errorf("error retrieving user %d: %w", in.UserID, err)
	}
	if err := s.inventory.CheckAvailability(ctx, tx, ticket, in.Quantity); err != nil {
		if appErr, ok := types.AsAppError(err); ok {
			monitoring.RecordReservationRejected(appErr.Error())
		}
		return nil, err
	}

	ids := make([]string, 0, in.Quantity)
	for i := 0; i < in.Quantity; i++ {
		sale := models.Sale{
			TicketID:          ticket.ID,
			UserID:            in.UserID,
			PaymentStatus:     types.PAYMENT_PENDING,
			CheckoutSessionID: in.CheckoutSessionID,
		}
		if err := tx.CreateSale(ctx, &sale); err != nil {
			log.Printf("Error creating pending sale for ticket %d: %s\n", ticket.ID, err.Error())
			return nil, fmt.Errorf("error creating pending sale: %w", err)
		}
		ids = append(ids, sale.ID)
	}
	monitoring.RecordSalesReserved(strconv.FormatUint(uint64(ticket.ID), 10), len(ids))
	log.Printf("Reserved %d pending sales for ticket %d and user %d\n", len(ids), ticket.ID, in.UserID)
	return ids, nil
}

func (s *SaleService) FindByUser(ctx context.Context, userID uint) ([]*types.TicketSaleResponse, error) {
	sales, err := s.store.FindSalesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving sales for user %d: %w", userID, err)
	}
	res := make([]*types.TicketSaleResponse, 0, len(sales))
	for i := range sales {
		res = append(res, sales[i].ToResponse())
	}
	return res, nil
}

func (s *SaleService) FindByID(ctx context.Context, id string) (*types.TicketSaleResponse, error) {
	sale, err := s.store.FindSale(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound(types.ERR_SALE_NOT_FOUND)
		}
		return nil, fmt.Errorf("error retrieving sale %s: %w", id, err)
	}
	return sale.ToResponse(), nil
}
