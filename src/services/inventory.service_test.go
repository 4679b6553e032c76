package services_test

import (
	"apaeventus/src/models"
	"apaeventus/src/types"
	"time"
)

func (s *ServicesTestSuite) TestCheckAvailability() {
	inactive := s.store.AddTicket(models.Ticket{Title: "Bingo", EventDate: s.now.Add(time.Hour), Quantity: 5})
	past := s.addTicket("Bazar", 5, s.now.Add(-time.Hour))
	startsNow := s.addTicket("Show", 5, s.now)
	full := s.addTicket("Rifa", 2, s.now.Add(time.Hour))
	s.addSale(full.ID, types.PAYMENT_PENDING)
	s.addSale(full.ID, types.PAYMENT_PAID)

	tests := []struct {
		name   string
		ticket *models.Ticket
		qty    int
		kind   types.ErrorKind
		msg    string
	}{
		{"zero quantity", s.ticket, 0, types.KIND_VALIDATION, types.ERR_INVALID_QUANTITY},
		{"inactive", inactive, 1, types.KIND_CONFLICT, types.ERR_TICKET_INACTIVE},
		{"event in the past", past, 1, types.KIND_VALIDATION, types.ERR_TICKET_EXPIRED},
		{"event starting now", startsNow, 1, types.KIND_VALIDATION, types.ERR_TICKET_EXPIRED},
		{"sold out", full, 1, types.KIND_CONFLICT, types.ERR_TICKET_SOLD_OUT},
		{"exceeds remaining", s.ticket, 11, types.KIND_CONFLICT, types.ERR_TICKET_QTY_EXCEEDED},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			err := s.inventory.CheckAvailability(s.ctx, s.store, tt.ticket, tt.qty)
			s.assertKind(err, tt.kind, tt.msg)
		})
	}

	s.NoError(s.inventory.CheckAvailability(s.ctx, s.store, s.ticket, 10))
}

func (s *ServicesTestSuite) TestCheckAvailabilityCountsPendingSales() {
	for i := 0; i < 9; i++ {
		s.addSale(s.ticket.ID, types.PAYMENT_PENDING)
	}
	s.NoError(s.inventory.CheckAvailability(s.ctx, s.store, s.ticket, 1))
	err := s.inventory.CheckAvailability(s.ctx, s.store, s.ticket, 2)
	s.assertKind(err, types.KIND_CONFLICT, types.ERR_TICKET_QTY_EXCEEDED)
}
