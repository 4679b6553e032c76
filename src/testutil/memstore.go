package testutil

import (
	"apaeventus/src/models"
	"apaeventus/src/services"
	"apaeventus/src/types"
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemStore is an in-memory services.Store. Transactions are serialized and
// roll back by restoring a snapshot taken when they start. Writes made
// outside a transaction wait for the running one, so a rollback can only
// discard the transaction's own writes.
type MemStore struct {
	*memState
	inTx bool
}

type memState struct {
	txMu sync.Mutex
	mu   sync.Mutex

	tickets  map[uint]*models.Ticket
	users    map[uint]*models.User
	sales    []*models.Sale
	sessions map[string]*models.CheckoutSession
	nextID   uint

	createSaleCalls int
	// FailCreateSaleAt makes the n-th CreateSale call (1-based) fail.
	FailCreateSaleAt int
}

var ErrInjected = errors.New("injected failure")

func NewMemStore() *MemStore {
	return &MemStore{memState: &memState{
		tickets:  map[uint]*models.Ticket{},
		users:    map[uint]*models.User{},
		sessions: map[string]*models.CheckoutSession{},
		nextID:   1,
	}}
}

type memSnapshot struct {
	tickets  map[uint]models.Ticket
	users    map[uint]models.User
	sales    []models.Sale
	sessions map[string]models.CheckoutSession
	nextID   uint
}

func (s *MemStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		tickets:  map[uint]models.Ticket{},
		users:    map[uint]models.User{},
		sessions: map[string]models.CheckoutSession{},
		nextID:   s.nextID,
	}
	for k, v := range s.tickets {
		snap.tickets[k] = *v
	}
	for k, v := range s.users {
		snap.users[k] = *v
	}
	for _, v := range s.sales {
		snap.sales = append(snap.sales, *v)
	}
	for k, v := range s.sessions {
		snap.sessions[k] = *v
	}
	return snap
}

func (s *MemStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = map[uint]*models.Ticket{}
	for k, v := range snap.tickets {
		t := v
		s.tickets[k] = &t
	}
	s.users = map[uint]*models.User{}
	for k, v := range snap.users {
		u := v
		s.users[k] = &u
	}
	s.sales = nil
	for _, v := range snap.sales {
		sale := v
		s.sales = append(s.sales, &sale)
	}
	s.sessions = map[string]*models.CheckoutSession{}
	for k, v := range snap.sessions {
		cs := v
		s.sessions[k] = &cs
	}
	s.nextID = snap.nextID
}

func (s *MemStore) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(&MemStore{memState: s.memState, inTx: true}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// write holds txMu for writes made outside a transaction.
func (s *MemStore) write() func() {
	if s.inTx {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

// AddUser and AddTicket seed rows; zero ids are assigned.
func (s *MemStore) AddUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.nextID
		s.nextID++
	}
	if u.Role == "" {
		u.Role = types.ROLE_USER
	}
	s.users[u.ID] = &u
	cp := u
	return &cp
}

func (s *MemStore) AddTicket(t models.Ticket) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.nextID
		s.nextID++
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.tickets[t.ID] = &t
	cp := t
	return &cp
}

// Sales returns every live sale row.
func (s *MemStore) Sales() []models.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Sale
	for _, sale := range s.sales {
		if !sale.DeletedAt.Valid {
			out = append(out, *sale)
		}
	}
	return out
}

func (s *MemStore) Session(id string) (*models.CheckoutSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *cs
	return &cp, true
}

// PutSession stores a checkout session row as is, timestamps included.
func (s *MemStore) PutSession(cs models.CheckoutSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[cs.ID] = &cs
}

func (s *MemStore) findTicket(id uint) (*models.Ticket, error) {
	t, ok := s.tickets[id]
	if !ok || t.IsDeleted {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemStore) FindTicket(ctx context.Context, id uint) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTicket(id)
}

func (s *MemStore) LockTicket(ctx context.Context, id uint) (*models.Ticket, error) {
	return s.FindTicket(ctx, id)
}

func (s *MemStore) ListAvailableTickets(ctx context.Context, now time.Time) ([]models.TicketSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TicketSummary
	for _, t := range s.tickets {
		if !t.IsActive || t.IsDeleted || !t.EventDate.After(now) {
			continue
		}
		sold := s.countSales(t.ID, false)
		if sold >= int64(t.Quantity) {
			continue
		}
		out = append(out, models.TicketSummary{Ticket: *t, Sold: sold})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sold == out[j].Sold {
			return out[i].ID < out[j].ID
		}
		return out[i].Sold > out[j].Sold
	})
	return out, nil
}

func (s *MemStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	defer s.write()()
	created := s.AddTicket(*ticket)
	*ticket = *created
	return nil
}

func (s *MemStore) UpdateTicket(ctx context.Context, id uint, updates map[string]any) (int64, error) {
	defer s.write()()
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok || t.IsDeleted {
		return 0, nil
	}
	for k, v := range updates {
		switch k {
		case "is_active":
			t.IsActive = v.(bool)
		case "is_deleted":
			t.IsDeleted = v.(bool)
		}
	}
	return 1, nil
}

func (s *MemStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemStore) countSales(ticketID uint, usedOnly bool) int64 {
	var n int64
	for _, sale := range s.sales {
		if sale.DeletedAt.Valid || sale.TicketID != ticketID {
			continue
		}
		if usedOnly && !sale.Used {
			continue
		}
		n++
	}
	return n
}

func (s *MemStore) CountSales(ctx context.Context, ticketID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countSales(ticketID, false), nil
}

func (s *MemStore) CountUsedSales(ctx context.Context, ticketID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countSales(ticketID, true), nil
}

func (s *MemStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	defer s.write()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createSaleCalls++
	if s.FailCreateSaleAt > 0 && s.createSaleCalls == s.FailCreateSaleAt {
		return ErrInjected
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.PaymentStatus == "" {
		sale.PaymentStatus = types.PAYMENT_PENDING
	}
	now := time.Now()
	sale.CreatedAt = now
	sale.UpdatedAt = now
	cp := *sale
	s.sales = append(s.sales, &cp)
	return nil
}

func (s *MemStore) withRelations(sale models.Sale, user bool) models.Sale {
	if t, ok := s.tickets[sale.TicketID]; ok {
		cp := *t
		sale.Ticket = &cp
	}
	if user {
		if u, ok := s.users[sale.UserID]; ok {
			cp := *u
			sale.User = &cp
		}
	}
	return sale
}

func (s *MemStore) liveSale(id string) *models.Sale {
	for _, sale := range s.sales {
		if sale.ID == id && !sale.DeletedAt.Valid {
			return sale
		}
	}
	return nil
}

func (s *MemStore) FindSale(ctx context.Context, id string) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale := s.liveSale(id)
	if sale == nil {
		return nil, gorm.ErrRecordNotFound
	}
	out := s.withRelations(*sale, false)
	return &out, nil
}

func (s *MemStore) FindSalesByUser(ctx context.Context, userID uint) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Sale
	for i := len(s.sales) - 1; i >= 0; i-- {
		sale := s.sales[i]
		if sale.UserID == userID && !sale.DeletedAt.Valid {
			out = append(out, s.withRelations(*sale, false))
		}
	}
	return out, nil
}

func (s *MemStore) FindSalesBySession(ctx context.Context, sessionID string) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Sale
	for _, sale := range s.sales {
		if sale.CheckoutSessionID != nil && *sale.CheckoutSessionID == sessionID && !sale.DeletedAt.Valid {
			out = append(out, *sale)
		}
	}
	return out, nil
}

func (s *MemStore) FindSalesForFulfillment(ctx context.Context, ids []string) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Sale
	for _, sale := range s.sales {
		if slices.Contains(ids, sale.ID) && !sale.DeletedAt.Valid {
			out = append(out, s.withRelations(*sale, true))
		}
	}
	return out, nil
}

func (s *MemStore) MarkSalePaid(ctx context.Context, id string, artifacts types.SaleArtifacts) error {
	defer s.write()()
	s.mu.Lock()
	defer s.mu.Unlock()
	sale := s.liveSale(id)
	if sale == nil {
		return gorm.ErrRecordNotFound
	}
	pdf, qr, data := artifacts.PdfURL, artifacts.QrCodeURL, artifacts.QrCodeDataURL
	sale.PdfURL = &pdf
	sale.QrCodeURL = &qr
	sale.QrCodeDataURL = &data
	sale.PaymentStatus = types.PAYMENT_PAID
	sale.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) UpdateSaleUsage(ctx context.Context, id string, used bool) (int64, error) {
	defer s.write()()
	s.mu.Lock()
	defer s.mu.Unlock()
	sale := s.liveSale(id)
	if sale == nil || sale.Used == used {
		return 0, nil
	}
	if used && sale.PaymentStatus != types.PAYMENT_PAID {
		return 0, nil
	}
	sale.Used = used
	sale.UpdatedAt = time.Now()
	return 1, nil
}

func (s *MemStore) CreateCheckoutSession(ctx context.Context, session *models.CheckoutSession) error {
	defer s.write()()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *MemStore) ClaimCheckoutSession(ctx context.Context, session *models.CheckoutSession) (bool, error) {
	defer s.write()()
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[session.ID]
	now := time.Now()
	if !ok {
		cp := *session
		cp.CreatedAt = now
		cp.UpdatedAt = now
		s.sessions[session.ID] = &cp
		cs = &cp
	}
	switch {
	case cs.Status == types.CHECKOUT_OPEN, cs.Status == types.CHECKOUT_FAILED:
	case cs.Status == types.CHECKOUT_PROCESSING && cs.UpdatedAt.Before(now.Add(-services.ClaimLease)):
	default:
		return false, nil
	}
	cs.Status = types.CHECKOUT_PROCESSING
	cs.Attempts++
	cs.UpdatedAt = now
	return true, nil
}

func (s *MemStore) FinishCheckoutSession(ctx context.Context, id string, status types.CheckoutStatus, lastError *string) error {
	defer s.write()()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.sessions[id]; ok {
		cs.Status = status
		cs.LastError = lastError
		cs.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemStore) ExpireCheckoutSession(ctx context.Context, id string) (int64, error) {
	defer s.write()()
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if !ok || cs.Status != types.CHECKOUT_OPEN {
		return 0, nil
	}
	cs.Status = types.CHECKOUT_EXPIRED
	cs.UpdatedAt = time.Now()
	var released int64
	for _, sale := range s.sales {
		if sale.CheckoutSessionID != nil && *sale.CheckoutSessionID == id &&
			sale.PaymentStatus == types.PAYMENT_PENDING && !sale.DeletedAt.Valid {
			sale.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
			released++
		}
	}
	return released, nil
}
