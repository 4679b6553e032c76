package repository

import (
	"apaeventus/src/models"
	"apaeventus/src/models/scopes"
	"apaeventus/src/services"
	"apaeventus/src/types"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) FindTicket(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).
		Scopes(scopes.NotDeleted, scopes.WithID(id)).
		First(&ticket).
		Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// LockTicket reads the ticket row with FOR UPDATE. Callers must be inside a
// transaction; concurrent reservations for the same ticket queue behind it.
func (s *GormStore) LockTicket(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{
			Strength: "UPDATE",
			Table:    clause.Table{Name: clause.CurrentTable},
		}).
		Scopes(scopes.NotDeleted, scopes.WithID(id)).
		First(&ticket).
		Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *GormStore) ListAvailableTickets(ctx context.Context, now time.Time) ([]models.TicketSummary, error) {
	var tickets []models.TicketSummary
	err := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Select("tickets.*, COUNT(ticket_sales.id) AS sold").
		Joins("LEFT JOIN ticket_sales ON ticket_sales.ticket_id = tickets.id AND ticket_sales.deleted_at IS NULL").
		Scopes(scopes.Available(now)).
		Group("tickets.id").
		Having("COUNT(ticket_sales.id) < tickets.quantity").
		Order("sold DESC").
		Scan(&tickets).
		Error
	return tickets, err
}

func (s *GormStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	return s.db.WithContext(ctx).Create(ticket).Error
}

func (s *GormStore) UpdateTicket(ctx context.Context, id uint, updates map[string]any) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Scopes(scopes.NotDeleted).
		Where("id = ?", id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (s *GormStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) CountSales(ctx context.Context, ticketID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("ticket_id = ?", ticketID).
		Count(&count).
		Error
	return count, err
}

func (s *GormStore) CountUsedSales(ctx context.Context, ticketID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("ticket_id = ? AND used = ?", ticketID, true).
		Count(&count).
		Error
	return count, err
}

func (s *GormStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	return s.db.WithContext(ctx).Create(sale).Error
}

func (s *GormStore) FindSale(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.WithContext(ctx).
		Preload("Ticket").
		Scopes(scopes.WithID(id)).
		First(&sale).
		Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *GormStore) FindSalesByUser(ctx context.Context, userID uint) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.WithContext(ctx).
		Preload("Ticket").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sales).
		Error
	return sales, err
}

func (s *GormStore) FindSalesBySession(ctx context.Context, sessionID string) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.WithContext(ctx).
		Where("checkout_session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&sales).
		Error
	return sales, err
}

func (s *GormStore) FindSalesForFulfillment(ctx context.Context, ids []string) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.WithContext(ctx).
		Preload("Ticket").
		Preload("User").
		Scopes(scopes.WithIDs(ids...)).
		Order("created_at ASC").
		Find(&sales).
		Error
	return sales, err
}

func (s *GormStore) MarkSalePaid(ctx context.Context, id string, artifacts types.SaleArtifacts) error {
	res := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pdf_url":          artifacts.PdfURL,
			"qr_code_url":      artifacts.QrCodeURL,
			"qr_code_data_url": artifacts.QrCodeDataURL,
			"payment_status":   types.PAYMENT_PAID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateSaleUsage flips used in a single conditional statement. Marking as
// used also requires the sale to be paid. It returns the affected row count.
func (s *GormStore) UpdateSaleUsage(ctx context.Context, id string, used bool) (int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND used = ?", id, !used)
	if used {
		query = query.Where("payment_status = ?", types.PAYMENT_PAID)
	}
	res := query.Update("used", used)
	return res.RowsAffected, res.Error
}

func (s *GormStore) CreateCheckoutSession(ctx context.Context, session *models.CheckoutSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

// ClaimCheckoutSession makes sure the session row exists, then moves it to
// processing only if it is open, failed, or processing with an expired lease.
// False means another delivery already owns or finished it.
func (s *GormStore) ClaimCheckoutSession(ctx context.Context, session *models.CheckoutSession) (bool, error) {
	db := s.db.WithContext(ctx)
	if err := db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(session).
		Error; err != nil {
		return false, err
	}
	claimable := s.db.Session(&gorm.Session{NewDB: true}).
		Where(clause.IN{Column: "status", Values: []any{types.CHECKOUT_OPEN, types.CHECKOUT_FAILED}}).
		Or("status = ? AND updated_at < ?", types.CHECKOUT_PROCESSING, time.Now().Add(-services.ClaimLease))
	res := db.
		Model(&models.CheckoutSession{}).
		Where("id = ?", session.ID).
		Where(claimable).
		Updates(map[string]any{
			"status":   types.CHECKOUT_PROCESSING,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) FinishCheckoutSession(ctx context.Context, id string, status types.CheckoutStatus, lastError *string) error {
	return s.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"last_error": lastError,
		}).
		Error
}

// ExpireCheckoutSession closes an open session and soft-deletes its pending
// sales so their units return to the pool. It returns the released count.
func (s *GormStore) ExpireCheckoutSession(ctx context.Context, id string) (int64, error) {
	var released int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.CheckoutSession{}).
			Where("id = ? AND status = ?", id, types.CHECKOUT_OPEN).
			Update("status", types.CHECKOUT_EXPIRED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		res = tx.
			Where("checkout_session_id = ?", id).
			Scopes(scopes.WithPendingStatus).
			Delete(&models.Sale{})
		if res.Error != nil {
			return res.Error
		}
		released = res.RowsAffected
		return nil
	})
	return released, err
}
