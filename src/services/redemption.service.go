package services

import (
	"apaeventus/src/monitoring"
	"apaeventus/src/types"
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// RedemptionService toggles the used flag at the venue door.
type RedemptionService struct {
	store Store
}

func NewRedemptionService(store Store) *RedemptionService {
	return &RedemptionService{store: store}
}

func (s *RedemptionService) MarkUsed(ctx context.Context, id string) (*types.TicketSaleResponse, error) {
	return s.setUsage(ctx, id, true)
}

func (s *RedemptionService) MarkUnused(ctx context.Context, id string) (*types.TicketSaleResponse, error) {
	return s.setUsage(ctx, id, false)
}

func (s *RedemptionService) setUsage(ctx context.Context, id string, used bool) (*types.TicketSaleResponse, error) {
	action := "unused"
	if used {
		action = "used"
	}
	affected, err := s.store.UpdateSaleUsage(ctx, id, used)
	if err != nil {
		monitoring.RecordRedemption(action, "error")
		return nil, fmt.Errorf("error updating sale %s: %w", id, err)
	}
	sale, err := s.store.FindSale(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			monitoring.RecordRedemption(action, "not_found")
			return nil, types.NotFound(types.ERR_SALE_NOT_FOUND)
		}
		return nil, fmt.Errorf("error retrieving sale %s: %w", id, err)
	}
	if affected == 0 {
		var reason *types.AppError
		switch {
		case used && sale.Used:
			reason = types.Conflict(types.ERR_SALE_ALREADY_USED)
		case used && !sale.IsPaid():
			reason = types.Conflict(types.ERR_SALE_NOT_PAID)
		case !used && !sale.Used:
			reason = types.Conflict(types.ERR_SALE_NOT_USED_YET)
		default:
			return nil, fmt.Errorf("sale %s changed while being redeemed", id)
		}
		monitoring.RecordRedemption(action, "rejected")
		log.Printf("Redemption of sale %s rejected: %s\n", id, reason.Error())
		return nil, reason
	}
	monitoring.RecordRedemption(action, "ok")
	return sale.ToResponse(), nil
}
