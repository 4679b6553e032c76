package services_test

import (
	"apaeventus/src/services"
	"apaeventus/src/testutil"
	"apaeventus/src/types"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

func (s *ServicesTestSuite) checkout(qty int) *types.CheckoutResponse {
	res, err := s.reconciler.InitiateCheckout(s.ctx, services.CheckoutInput{
		TicketID: s.ticket.ID,
		UserID:   s.buyer.ID,
		Quantity: qty,
	})
	s.Require().NoError(err)
	return res
}

func (s *ServicesTestSuite) TestInitiateCheckoutReservesPendingSales() {
	res := s.checkout(3)

	s.Equal("cs_test_1", res.SessionID)
	s.NotEmpty(res.URL)
	s.Len(res.SaleIDs, 3)

	for _, sale := range s.store.Sales() {
		s.Equal(types.PAYMENT_PENDING, sale.PaymentStatus)
		s.Require().NotNil(sale.CheckoutSessionID)
		s.Equal(res.SessionID, *sale.CheckoutSessionID)
	}
	session, ok := s.store.Session(res.SessionID)
	s.Require().True(ok)
	s.Equal(types.CHECKOUT_OPEN, session.Status)
	s.Equal(3, session.Quantity)
	s.Equal(int64(7650), session.AmountTotal)
}

func (s *ServicesTestSuite) TestInitiateCheckoutRejectsUnavailableTicket() {
	_, err := s.reconciler.InitiateCheckout(s.ctx, services.CheckoutInput{
		TicketID: s.ticket.ID,
		UserID:   s.buyer.ID,
		Quantity: 11,
	})
	s.assertKind(err, types.KIND_CONFLICT, types.ERR_TICKET_QTY_EXCEEDED)

	_, err = s.reconciler.InitiateCheckout(s.ctx, services.CheckoutInput{TicketID: 999, UserID: s.buyer.ID, Quantity: 1})
	s.assertKind(err, types.KIND_NOT_FOUND, types.ERR_TICKET_NOT_FOUND)

	s.Empty(s.store.Sales())
}

func (s *ServicesTestSuite) TestInitiateCheckoutGatewayFailure() {
	s.gateway.CreateErr = errors.New("stripe unavailable")

	_, err := s.reconciler.InitiateCheckout(s.ctx, services.CheckoutInput{
		TicketID: s.ticket.ID,
		UserID:   s.buyer.ID,
		Quantity: 1,
	})
	s.assertKind(err, types.KIND_EXTERNAL_DEPENDENCY, "")
	s.Empty(s.store.Sales())
}

func (s *ServicesTestSuite) TestInitiateCheckoutRollsBackAndExpiresSession() {
	s.store.FailCreateSaleAt = 2

	_, err := s.reconciler.InitiateCheckout(s.ctx, services.CheckoutInput{
		TicketID: s.ticket.ID,
		UserID:   s.buyer.ID,
		Quantity: 3,
	})
	s.Error(err)
	s.Empty(s.store.Sales())
	_, ok := s.store.Session("cs_test_1")
	s.False(ok)
	s.Equal([]string{"cs_test_1"}, s.gateway.Expired)
}

func (s *ServicesTestSuite) TestReconcileFulfillsOnce() {
	res := s.checkout(2)
	s.gateway.MarkPaid(res.SessionID)

	s.Require().NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))
	s.Require().NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))

	sales := s.store.Sales()
	s.Len(sales, 2)
	for _, sale := range sales {
		s.Equal(types.PAYMENT_PAID, sale.PaymentStatus)
		s.NotNil(sale.PdfURL)
	}
	s.Equal(1, s.mailer.Count())
	s.Equal("maria@example.com", s.mailer.Sent[0].To)

	session, _ := s.store.Session(res.SessionID)
	s.Equal(types.CHECKOUT_FULFILLED, session.Status)
	s.Equal(1, session.Attempts)

	s.Require().Len(s.publisher.Messages, 1)
	s.ElementsMatch(res.SaleIDs, s.publisher.Messages[0].SaleIDs)
}

func (s *ServicesTestSuite) TestConcurrentReconcileFulfillsOnce() {
	res := s.checkout(2)
	s.gateway.MarkPaid(res.SessionID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))
		}()
	}
	wg.Wait()

	s.Equal(1, s.mailer.Count())
	s.Len(s.store.Sales(), 2)
}

func (s *ServicesTestSuite) TestReconcileUnpaidSessionIsNoop() {
	res := s.checkout(1)

	s.NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))

	s.Equal(0, s.mailer.Count())
	session, _ := s.store.Session(res.SessionID)
	s.Equal(types.CHECKOUT_OPEN, session.Status)
}

func (s *ServicesTestSuite) TestReconcileCreatesSalesFromMetadata() {
	s.gateway.PutSession(types.GatewaySession{
		ID:            "cs_external",
		PaymentStatus: "paid",
		AmountTotal:   5100,
		Currency:      "brl",
		Metadata: map[string]string{
			"ticketId": strconv.FormatUint(uint64(s.ticket.ID), 10),
			"userId":   strconv.FormatUint(uint64(s.buyer.ID), 10),
			"quantity": "2",
		},
	})

	s.Require().NoError(s.reconciler.Reconcile(s.ctx, "cs_external"))

	sales := s.store.Sales()
	s.Len(sales, 2)
	for _, sale := range sales {
		s.Equal(types.PAYMENT_PAID, sale.PaymentStatus)
	}
	s.Equal(1, s.mailer.Count())
	session, _ := s.store.Session("cs_external")
	s.Equal(types.CHECKOUT_FULFILLED, session.Status)
}

func (s *ServicesTestSuite) TestReconcileSkipsUnusableSessions() {
	s.gateway.PutSession(types.GatewaySession{
		ID:            "cs_missing_ticket",
		PaymentStatus: "paid",
		Metadata:      map[string]string{"ticketId": "999", "userId": "1", "quantity": "1"},
	})
	s.gateway.PutSession(types.GatewaySession{
		ID:            "cs_bad_metadata",
		PaymentStatus: "paid",
		Metadata:      map[string]string{"ticketId": "abc"},
	})

	for _, id := range []string{"cs_missing_ticket", "cs_bad_metadata"} {
		s.Run(id, func() {
			s.NoError(s.reconciler.Reconcile(s.ctx, id))
			session, ok := s.store.Session(id)
			s.Require().True(ok)
			s.Equal(types.CHECKOUT_FAILED, session.Status)
			s.NotNil(session.LastError)
		})
	}
	s.Empty(s.store.Sales())
	s.Equal(0, s.mailer.Count())
}

func (s *ServicesTestSuite) TestReconcileSkipsRejectedSessions() {
	soldOut := s.addTicket("Bingo Beneficente", 1, s.now.Add(7*24*time.Hour))
	s.addSale(soldOut.ID, types.PAYMENT_PAID)
	buyerID := strconv.FormatUint(uint64(s.buyer.ID), 10)

	s.gateway.PutSession(types.GatewaySession{
		ID:            "cs_sold_out",
		PaymentStatus: "paid",
		Metadata:      map[string]string{"ticketId": strconv.FormatUint(uint64(soldOut.ID), 10), "userId": buyerID, "quantity": "1"},
	})
	s.gateway.PutSession(types.GatewaySession{
		ID:            "cs_missing_user",
		PaymentStatus: "paid",
		Metadata:      map[string]string{"ticketId": strconv.FormatUint(uint64(s.ticket.ID), 10), "userId": "999", "quantity": "1"},
	})

	for i, id := range []string{"cs_sold_out", "cs_missing_user"} {
		s.Run(id, func() {
			for delivery := 0; delivery < 3; delivery++ {
				event := &types.GatewayEvent{
					ID:       fmt.Sprintf("evt_rejected_%d_%d", i, delivery),
					Type:     types.EVENT_CHECKOUT_COMPLETED,
					ObjectID: id,
				}
				s.NoError(s.reconciler.HandleEvent(s.ctx, event))
			}
			session, ok := s.store.Session(id)
			s.Require().True(ok)
			s.Equal(types.CHECKOUT_FAILED, session.Status)
			s.Require().NotNil(session.LastError)
		})
	}
	session, _ := s.store.Session("cs_sold_out")
	s.Contains(*session.LastError, types.ERR_TICKET_SOLD_OUT)
	session, _ = s.store.Session("cs_missing_user")
	s.Contains(*session.LastError, types.ERR_USER_NOT_FOUND)

	s.Len(s.store.Sales(), 1)
	s.Equal(0, s.mailer.Count())
}

func (s *ServicesTestSuite) TestReconcileRetriesAfterFailure() {
	res := s.checkout(2)
	s.gateway.MarkPaid(res.SessionID)
	s.mailer.Err = errors.New("smtp down")

	err := s.reconciler.Reconcile(s.ctx, res.SessionID)
	s.assertKind(err, types.KIND_EXTERNAL_DEPENDENCY, "")
	session, _ := s.store.Session(res.SessionID)
	s.Equal(types.CHECKOUT_FAILED, session.Status)

	s.mailer.Err = nil
	s.Require().NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))

	s.Equal(1, s.mailer.Count())
	s.Len(s.store.Sales(), 2)
	session, _ = s.store.Session(res.SessionID)
	s.Equal(types.CHECKOUT_FULFILLED, session.Status)
	s.Equal(2, session.Attempts)
}

func (s *ServicesTestSuite) TestReconcileTakesOverStaleClaim() {
	res := s.checkout(2)
	s.gateway.MarkPaid(res.SessionID)
	stuck, _ := s.store.Session(res.SessionID)
	stuck.Status = types.CHECKOUT_PROCESSING
	stuck.Attempts = 1

	stuck.UpdatedAt = time.Now().Add(-time.Minute)
	s.store.PutSession(*stuck)
	s.Require().NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))
	s.Equal(0, s.mailer.Count())
	session, _ := s.store.Session(res.SessionID)
	s.Equal(types.CHECKOUT_PROCESSING, session.Status)

	stuck.UpdatedAt = time.Now().Add(-services.ClaimLease - time.Minute)
	s.store.PutSession(*stuck)
	s.Require().NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))
	s.Equal(1, s.mailer.Count())
	session, _ = s.store.Session(res.SessionID)
	s.Equal(types.CHECKOUT_FULFILLED, session.Status)
	s.Equal(2, session.Attempts)
	for _, sale := range s.store.Sales() {
		s.Equal(types.PAYMENT_PAID, sale.PaymentStatus)
	}
}

func (s *ServicesTestSuite) TestHandleEventIgnoresOtherTypes() {
	err := s.reconciler.HandleEvent(s.ctx, &types.GatewayEvent{ID: "evt_0", Type: "customer.created", ObjectID: "cus_1"})
	s.NoError(err)
}

func (s *ServicesTestSuite) TestHandleEventDropsDuplicateDeliveries() {
	res := s.checkout(1)
	s.gateway.MarkPaid(res.SessionID)
	event := &types.GatewayEvent{ID: "evt_1", Type: types.EVENT_CHECKOUT_COMPLETED, ObjectID: res.SessionID}

	s.Require().NoError(s.reconciler.HandleEvent(s.ctx, event))

	// a redelivery never reaches the gateway
	s.gateway.RetrieveErr = errors.New("should not be called")
	s.NoError(s.reconciler.HandleEvent(s.ctx, event))
	s.Equal(1, s.mailer.Count())
}

func (s *ServicesTestSuite) TestHandleEventReleasesFailedEvents() {
	res := s.checkout(1)
	s.gateway.MarkPaid(res.SessionID)
	event := &types.GatewayEvent{ID: "evt_2", Type: types.EVENT_CHECKOUT_COMPLETED, ObjectID: res.SessionID}

	s.gateway.RetrieveErr = errors.New("timeout")
	s.Error(s.reconciler.HandleEvent(s.ctx, event))

	s.gateway.RetrieveErr = nil
	s.NoError(s.reconciler.HandleEvent(s.ctx, event))
	s.Equal(1, s.mailer.Count())
}

func (s *ServicesTestSuite) TestExpiredSessionReleasesReservations() {
	res := s.checkout(3)
	count, _ := s.store.CountSales(s.ctx, s.ticket.ID)
	s.Equal(int64(3), count)

	event := &types.GatewayEvent{ID: "evt_3", Type: types.EVENT_CHECKOUT_EXPIRED, ObjectID: res.SessionID}
	s.Require().NoError(s.reconciler.HandleEvent(s.ctx, event))

	count, _ = s.store.CountSales(s.ctx, s.ticket.ID)
	s.Equal(int64(0), count)
	session, _ := s.store.Session(res.SessionID)
	s.Equal(types.CHECKOUT_EXPIRED, session.Status)

	// a late completion for an expired session does nothing
	s.gateway.MarkPaid(res.SessionID)
	s.NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))
	s.Empty(s.store.Sales())
	s.Equal(0, s.mailer.Count())
}

func (s *ServicesTestSuite) TestExpireAfterFulfillmentKeepsSales() {
	res := s.checkout(2)
	s.gateway.MarkPaid(res.SessionID)
	s.Require().NoError(s.reconciler.Reconcile(s.ctx, res.SessionID))

	s.NoError(s.reconciler.Expire(s.ctx, res.SessionID))

	s.Len(s.store.Sales(), 2)
	session, _ := s.store.Session(res.SessionID)
	s.Equal(types.CHECKOUT_FULFILLED, session.Status)
}

func (s *ServicesTestSuite) TestVerifyWebhook() {
	payload := testutil.EventPayload("evt_9", types.EVENT_CHECKOUT_COMPLETED, "cs_test_9")

	_, err := s.reconciler.VerifyWebhook(payload, "")
	s.assertKind(err, types.KIND_SIGNATURE_VERIFICATION, "Invalid webhook signature")

	_, err = s.reconciler.VerifyWebhook(payload, "t=1,v1=forged")
	s.assertKind(err, types.KIND_SIGNATURE_VERIFICATION, "Invalid webhook signature")

	event, err := s.reconciler.VerifyWebhook(payload, testutil.ValidSignature)
	s.Require().NoError(err)
	s.Equal("evt_9", event.ID)
	s.Equal(types.EVENT_CHECKOUT_COMPLETED, event.Type)
	s.Equal("cs_test_9", event.ObjectID)
}
