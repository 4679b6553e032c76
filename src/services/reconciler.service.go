package services

import (
	"apaeventus/src/models"
	"apaeventus/src/monitoring"
	"apaeventus/src/types"
	"apaeventus/src/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"gorm.io/gorm"
)

type CheckoutInput struct {
	TicketID   uint
	UserID     uint
	Quantity   int
	SuccessURL string
	CancelURL  string
}

type CheckoutOptions struct {
	Currency          string
	DefaultSuccessURL string
	DefaultCancelURL  string
}

type checkoutMetadata struct {
	TicketID uint
	UserID   uint
	Quantity int
}

var errReconcileSkipped = errors.New("checkout session cannot produce sales")

// ReconcilerService links Stripe checkout sessions to sale rows. Pending rows
// are reserved when the session is created and confirmed exactly once when
// the payment completes.
type ReconcilerService struct {
	store       Store
	gateway     PaymentGateway
	sales       *SaleService
	inventory   *InventoryService
	fulfillment *FulfillmentService
	publisher   Publisher
	dedup       EventDeduplicator
	opts        CheckoutOptions
}

func NewReconcilerService(
	store Store,
	gateway PaymentGateway,
	sales *SaleService,
	inventory *InventoryService,
	fulfillment *FulfillmentService,
	publisher Publisher,
	dedup EventDeduplicator,
	opts CheckoutOptions,
) *ReconcilerService {
	if opts.Currency == "" {
		opts.Currency = "brl"
	}
	return &ReconcilerService{
		store:       store,
		gateway:     gateway,
		sales:       sales,
		inventory:   inventory,
		fulfillment: fulfillment,
		publisher:   publisher,
		dedup:       dedup,
		opts:        opts,
	}
}

func (s *ReconcilerService) InitiateCheckout(ctx context.Context, in CheckoutInput) (*types.CheckoutResponse, error) {
	if in.Quantity < 1 {
		return nil, types.Validation(types.ERR_INVALID_QUANTITY)
	}
	ticket, err := s.store.FindTicket(ctx, in.TicketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound(types.ERR_TICKET_NOT_FOUND)
		}
		return nil, fmt.Errorf("error retrieving ticket %d: %w", in.TicketID, err)
	}
	user, err := s.store.FindUser(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound(types.ERR_USER_NOT_FOUND)
		}
		return nil, fmt.Errorf("error retrieving user %d: %w", in.UserID, err)
	}
	if err := s.inventory.CheckAvailability(ctx, s.store, ticket, in.Quantity); err != nil {
		return nil, err
	}

	successURL := in.SuccessURL
	if successURL == "" {
		successURL = s.opts.DefaultSuccessURL
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = s.opts.DefaultCancelURL
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, types.CheckoutSessionParams{
		TicketID:    ticket.ID,
		UserID:      user.ID,
		Quantity:    in.Quantity,
		Title:       ticket.Title,
		Description: ticket.Description,
		ImageURL:    ticket.ImageURL,
		UnitAmount:  utils.ToMinorUnits(ticket.Price),
		Currency:    s.opts.Currency,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Email:       user.Email,
	})
	if err != nil {
		log.Printf("Error creating checkout session for ticket %d: %s\n", ticket.ID, err.Error())
		return nil, types.ExternalDependency("Could not create checkout session", err)
	}

	var saleIDs []string
	err = s.store.Transaction(ctx, func(tx Store) error {
		record := &models.CheckoutSession{
			ID:          session.ID,
			TicketID:    ticket.ID,
			UserID:      user.ID,
			Quantity:    in.Quantity,
			AmountTotal: session.AmountTotal,
			Currency:    session.Currency,
			URL:         session.URL,
			Status:      types.CHECKOUT_OPEN,
			Metadata:    session.Metadata,
		}
		if err := tx.CreateCheckoutSession(ctx, record); err != nil {
			return fmt.Errorf("error saving checkout session: %w", err)
		}
		ids, err := s.sales.reserve(ctx, tx, CreateSaleInput{
			TicketID:          ticket.ID,
			UserID:            user.ID,
			Quantity:          in.Quantity,
			CheckoutSessionID: &session.ID,
		})
		if err != nil {
			return err
		}
		saleIDs = ids
		return nil
	})
	if err != nil {
		if expErr := s.gateway.ExpireSession(ctx, session.ID); expErr != nil {
			log.Printf("Could not expire checkout session %s: %s\n", session.ID, expErr.Error())
		}
		return nil, err
	}

	log.Printf("Checkout session %s created for %d units of ticket %d\n", session.ID, in.Quantity, ticket.ID)
	return &types.CheckoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
		SaleIDs:   saleIDs,
	}, nil
}

// VerifyWebhook checks the gateway signature before anything else runs.
func (s *ReconcilerService) VerifyWebhook(payload []byte, signature string) (*types.GatewayEvent, error) {
	if signature == "" {
		return nil, types.SignatureVerification(errors.New("missing signature header"))
	}
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		return nil, types.SignatureVerification(err)
	}
	return event, nil
}

// HandleEvent dispatches a verified gateway event. Concurrent deliveries of
// the same event id are dropped when a deduplicator is configured.
func (s *ReconcilerService) HandleEvent(ctx context.Context, event *types.GatewayEvent) error {
	switch event.Type {
	case types.EVENT_CHECKOUT_COMPLETED, types.EVENT_CHECKOUT_EXPIRED:
	default:
		log.Printf("[StripeEvent] ignoring %s\n", event.Type)
		return nil
	}
	if s.dedup != nil && event.ID != "" {
		acquired, err := s.dedup.Acquire(ctx, event.ID)
		if err != nil {
			log.Printf("Could not check event %s for duplicates: %s\n", event.ID, err.Error())
		} else if !acquired {
			log.Printf("[StripeEvent] %s already being handled\n", event.ID)
			monitoring.RecordReconciliation("duplicate_event")
			return nil
		}
	}

	var err error
	switch event.Type {
	case types.EVENT_CHECKOUT_COMPLETED:
		err = s.Reconcile(ctx, event.ObjectID)
	case types.EVENT_CHECKOUT_EXPIRED:
		err = s.Expire(ctx, event.ObjectID)
	}
	if err != nil && s.dedup != nil && event.ID != "" {
		if relErr := s.dedup.Release(ctx, event.ID); relErr != nil {
			log.Printf("Could not release event %s: %s\n", event.ID, relErr.Error())
		}
	}
	return err
}

// Reconcile confirms a completed checkout session. Running it again for the
// same session is a no-op.
func (s *ReconcilerService) Reconcile(ctx context.Context, sessionID string) error {
	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return types.ExternalDependency("Could not retrieve checkout session", err)
	}
	if session.PaymentStatus != "paid" {
		log.Printf("Checkout session %s not paid (%s)\n", session.ID, session.PaymentStatus)
		monitoring.RecordReconciliation("unpaid")
		return nil
	}

	meta, metaErr := parseCheckoutMetadata(session.Metadata)
	claim := &models.CheckoutSession{
		ID:          session.ID,
		TicketID:    meta.TicketID,
		UserID:      meta.UserID,
		Quantity:    meta.Quantity,
		AmountTotal: session.AmountTotal,
		Currency:    session.Currency,
		URL:         session.URL,
		Status:      types.CHECKOUT_OPEN,
		Metadata:    session.Metadata,
	}
	claimed, err := s.store.ClaimCheckoutSession(ctx, claim)
	if err != nil {
		return fmt.Errorf("error claiming checkout session %s: %w", session.ID, err)
	}
	if !claimed {
		log.Printf("Checkout session %s already processed\n", session.ID)
		monitoring.RecordReconciliation("duplicate")
		return nil
	}

	saleIDs, err := s.collectSales(ctx, session.ID, meta, metaErr)
	if errors.Is(err, errReconcileSkipped) {
		s.finish(ctx, session.ID, types.CHECKOUT_FAILED, err)
		monitoring.RecordReconciliation("skipped")
		return nil
	}
	if err != nil {
		s.finish(ctx, session.ID, types.CHECKOUT_FAILED, err)
		monitoring.RecordReconciliation("failed")
		return err
	}

	if err := s.fulfillment.Process(ctx, saleIDs); err != nil {
		s.finish(ctx, session.ID, types.CHECKOUT_FAILED, err)
		monitoring.RecordReconciliation("failed")
		return err
	}
	s.finish(ctx, session.ID, types.CHECKOUT_FULFILLED, nil)
	monitoring.RecordReconciliation("fulfilled")
	log.Printf("Checkout session %s fulfilled with %d sales\n", session.ID, len(saleIDs))

	if s.publisher != nil {
		msg := types.SaleFulfilledMessage{
			SessionID: session.ID,
			TicketID:  meta.TicketID,
			UserID:    meta.UserID,
			SaleIDs:   saleIDs,
		}
		if err := s.publisher.PublishSaleFulfilled(ctx, msg); err != nil {
			log.Printf("Could not publish fulfillment of session %s: %s\n", session.ID, err.Error())
		}
	}
	return nil
}

// collectSales returns the sales to fulfill for a claimed session. Rows
// reserved at checkout are reused; otherwise they are created from the
// session metadata.
func (s *ReconcilerService) collectSales(ctx context.Context, sessionID string, meta checkoutMetadata, metaErr error) ([]string, error) {
	existing, err := s.store.FindSalesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving sales for session %s: %w", sessionID, err)
	}
	if len(existing) > 0 {
		ids := make([]string, 0, len(existing))
		for _, sale := range existing {
			ids = append(ids, sale.ID)
		}
		return ids, nil
	}

	if metaErr != nil {
		log.Printf("Checkout session %s has unusable metadata: %s\n", sessionID, metaErr.Error())
		return nil, fmt.Errorf("%w: %s", errReconcileSkipped, metaErr.Error())
	}
	if _, err := s.store.FindTicket(ctx, meta.TicketID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Ticket %d for checkout session %s not found\n", meta.TicketID, sessionID)
			return nil, fmt.Errorf("%w: ticket %d not found", errReconcileSkipped, meta.TicketID)
		}
		return nil, fmt.Errorf("error retrieving ticket %d: %w", meta.TicketID, err)
	}
	ids, err := s.sales.CreatePendingSales(ctx, CreateSaleInput{
		TicketID:          meta.TicketID,
		UserID:            meta.UserID,
		Quantity:          meta.Quantity,
		CheckoutSessionID: &sessionID,
	})
	if err != nil && isRejection(err) {
		log.Printf("Checkout session %s cannot be fulfilled: %s\n", sessionID, err.Error())
		return nil, fmt.Errorf("%w: %s", errReconcileSkipped, err.Error())
	}
	return ids, err
}

// isRejection reports whether err is a business rejection that no redelivery
// can change.
func isRejection(err error) bool {
	return types.IsKind(err, types.KIND_NOT_FOUND) ||
		types.IsKind(err, types.KIND_CONFLICT) ||
		types.IsKind(err, types.KIND_VALIDATION)
}

func (s *ReconcilerService) finish(ctx context.Context, sessionID string, status types.CheckoutStatus, cause error) {
	var lastError *string
	if cause != nil {
		msg := cause.Error()
		lastError = &msg
	}
	if err := s.store.FinishCheckoutSession(ctx, sessionID, status, lastError); err != nil {
		log.Printf("Could not update checkout session %s to %s: %s\n", sessionID, status, err.Error())
	}
}

// Expire releases the pending reservations of an abandoned checkout session.
func (s *ReconcilerService) Expire(ctx context.Context, sessionID string) error {
	released, err := s.store.ExpireCheckoutSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error expiring checkout session %s: %w", sessionID, err)
	}
	log.Printf("Checkout session %s expired, released %d reservations\n", sessionID, released)
	monitoring.RecordReconciliation("expired")
	return nil
}

func parseCheckoutMetadata(md map[string]string) (checkoutMetadata, error) {
	var meta checkoutMetadata
	ticketID, err := strconv.ParseUint(md["ticketId"], 10, 64)
	if err != nil {
		return meta, fmt.Errorf("invalid ticketId %q", md["ticketId"])
	}
	userID, err := strconv.ParseUint(md["userId"], 10, 64)
	if err != nil {
		return meta, fmt.Errorf("invalid userId %q", md["userId"])
	}
	qty, err := strconv.Atoi(md["quantity"])
	if err != nil || qty < 1 {
		return meta, fmt.Errorf("invalid quantity %q", md["quantity"])
	}
	meta.TicketID = uint(ticketID)
	meta.UserID = uint(userID)
	meta.Quantity = qty
	return meta, nil
}
