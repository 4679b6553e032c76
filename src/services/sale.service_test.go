package services_test

import (
	"apaeventus/src/services"
	"apaeventus/src/types"
	"sync"
	"sync/atomic"
)

func (s *ServicesTestSuite) TestCreatePendingSales() {
	ids, err := s.sales.CreatePendingSales(s.ctx, services.CreateSaleInput{
		TicketID: s.ticket.ID,
		UserID:   s.buyer.ID,
		Quantity: 3,
	})
	s.Require().NoError(err)
	s.Len(ids, 3)

	rows := s.store.Sales()
	s.Len(rows, 3)
	for _, row := range rows {
		s.Equal(types.PAYMENT_PENDING, row.PaymentStatus)
		s.False(row.Used)
		s.Equal(s.ticket.ID, row.TicketID)
		s.Equal(s.buyer.ID, row.UserID)
	}
}

func (s *ServicesTestSuite) TestCreatePendingSalesIsAtomic() {
	s.store.FailCreateSaleAt = 3

	ids, err := s.sales.CreatePendingSales(s.ctx, services.CreateSaleInput{
		TicketID: s.ticket.ID,
		UserID:   s.buyer.ID,
		Quantity: 5,
	})
	s.Error(err)
	s.Nil(ids)
	s.Empty(s.store.Sales())
}

func (s *ServicesTestSuite) TestCreatePendingSalesUnknownRows() {
	_, err := s.sales.CreatePendingSales(s.ctx, services.CreateSaleInput{TicketID: 999, UserID: s.buyer.ID, Quantity: 1})
	s.assertKind(err, types.KIND_NOT_FOUND, types.ERR_TICKET_NOT_FOUND)

	_, err = s.sales.CreatePendingSales(s.ctx, services.CreateSaleInput{TicketID: s.ticket.ID, UserID: 999, Quantity: 1})
	s.assertKind(err, types.KIND_NOT_FOUND, types.ERR_USER_NOT_FOUND)

	_, err = s.sales.CreatePendingSales(s.ctx, services.CreateSaleInput{TicketID: s.ticket.ID, UserID: s.buyer.ID, Quantity: 0})
	s.assertKind(err, types.KIND_VALIDATION, types.ERR_INVALID_QUANTITY)
}

func (s *ServicesTestSuite) TestConcurrentReservationsNeverOversell() {
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.sales.CreatePendingSales(s.ctx, services.CreateSaleInput{
				TicketID: s.ticket.ID,
				UserID:   s.buyer.ID,
				Quantity: 1,
			})
			if err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(10), succeeded.Load())
	count, err := s.store.CountSales(s.ctx, s.ticket.ID)
	s.NoError(err)
	s.Equal(int64(10), count)
}

func (s *ServicesTestSuite) TestFindSales() {
	sale := s.addSale(s.ticket.ID, types.PAYMENT_PAID)

	res, err := s.sales.FindByID(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.Equal(sale.ID, res.ID)
	s.Require().NotNil(res.Ticket)
	s.Equal("Festa Junina", res.Ticket.Title)

	list, err := s.sales.FindByUser(s.ctx, s.buyer.ID)
	s.NoError(err)
	s.Len(list, 1)

	empty, err := s.sales.FindByUser(s.ctx, 999)
	s.NoError(err)
	s.NotNil(empty)
	s.Empty(empty)

	_, err = s.sales.FindByID(s.ctx, "00000000-0000-0000-0000-000000000000")
	s.assertKind(err, types.KIND_NOT_FOUND, types.ERR_SALE_NOT_FOUND)
}
