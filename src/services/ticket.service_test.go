package services_test

import (
	"apaeventus/src/models"
	"apaeventus/src/services"
	"apaeventus/src/types"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

func (s *ServicesTestSuite) TestFindAvailableTickets() {
	popular := s.addTicket("Almoço Beneficente", 5, s.now.Add(48*time.Hour))
	s.addSale(popular.ID, types.PAYMENT_PAID)
	s.addSale(popular.ID, types.PAYMENT_PENDING)

	soldOut := s.addTicket("Bingo", 1, s.now.Add(48*time.Hour))
	s.addSale(soldOut.ID, types.PAYMENT_PAID)
	s.addTicket("Bazar", 5, s.now.Add(-time.Hour))
	s.store.AddTicket(models.Ticket{Title: "Rifa", EventDate: s.now.Add(time.Hour), Quantity: 5})
	deleted := s.addTicket("Show", 5, s.now.Add(time.Hour))
	s.Require().NoError(s.tickets.Delete(s.ctx, deleted.ID))

	res, err := s.tickets.FindAvailable(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(res, 2)
	s.Equal(popular.ID, res[0].ID)
	s.Equal(int64(2), res[0].Sold)
	s.Equal(s.ticket.ID, res[1].ID)
	s.Equal(int64(0), res[1].Sold)
}

func (s *ServicesTestSuite) TestFindOneTicket() {
	s.addSale(s.ticket.ID, types.PAYMENT_PENDING)

	res, err := s.tickets.FindOne(s.ctx, s.ticket.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), res.Sold)
	s.True(res.Price.Equal(decimal.RequireFromString("25.50")))

	_, err = s.tickets.FindOne(s.ctx, 999)
	s.assertKind(err, types.KIND_NOT_FOUND, types.ERR_TICKET_NOT_FOUND)
}

func (s *ServicesTestSuite) TestCreateTicket() {
	in := services.CreateTicketInput{
		Title:     "Noite do Pastel",
		EventDate: s.now.Add(72 * time.Hour),
		Quantity:  100,
		Price:     decimal.RequireFromString("12.9"),
	}

	res, err := s.tickets.Create(s.ctx, in)
	s.Require().NoError(err)
	s.NotZero(res.ID)
	s.True(res.IsActive)
	s.True(res.Price.Equal(decimal.RequireFromString("12.90")))

	s.Require().Len(s.gateway.Prices, 1)
	s.Equal(int64(1290), s.gateway.Prices[0].UnitAmount)
	s.Equal("brl", s.gateway.Prices[0].Currency)

	ticket, err := s.store.FindTicket(s.ctx, res.ID)
	s.Require().NoError(err)
	s.Require().NotNil(ticket.StripePriceId)
	s.Equal("price_test_1", *ticket.StripePriceId)
}

func (s *ServicesTestSuite) TestCreateTicketValidation() {
	base := services.CreateTicketInput{
		Title:     "Noite do Pastel",
		EventDate: s.now.Add(72 * time.Hour),
		Quantity:  100,
		Price:     decimal.RequireFromString("12.90"),
	}

	soon := base
	soon.EventDate = s.now.Add(23 * time.Hour)
	_, err := s.tickets.Create(s.ctx, soon)
	s.assertKind(err, types.KIND_VALIDATION, types.ERR_EVENT_DATE_TOO_SOON)

	free := base
	free.Price = decimal.Zero
	_, err = s.tickets.Create(s.ctx, free)
	s.assertKind(err, types.KIND_VALIDATION, types.ERR_INVALID_TICKET_PRICE)

	empty := base
	empty.Quantity = 0
	_, err = s.tickets.Create(s.ctx, empty)
	s.assertKind(err, types.KIND_VALIDATION, types.ERR_INVALID_QUANTITY)

	s.gateway.PriceErr = errors.New("stripe unavailable")
	_, err = s.tickets.Create(s.ctx, base)
	s.assertKind(err, types.KIND_EXTERNAL_DEPENDENCY, "")
}

func (s *ServicesTestSuite) TestTicketAdministration() {
	s.Require().NoError(s.tickets.SetActive(s.ctx, s.ticket.ID, false))
	err := s.inventory.CheckAvailability(s.ctx, s.store, mustFind(s, s.ticket.ID), 1)
	s.assertKind(err, types.KIND_CONFLICT, types.ERR_TICKET_INACTIVE)

	s.assertKind(s.tickets.SetActive(s.ctx, 999, true), types.KIND_NOT_FOUND, types.ERR_TICKET_NOT_FOUND)

	paid := s.addSale(s.ticket.ID, types.PAYMENT_PAID)
	s.addSale(s.ticket.ID, types.PAYMENT_PENDING)
	_, err = s.redemption.MarkUsed(s.ctx, paid.ID)
	s.Require().NoError(err)

	sold, err := s.tickets.CountSold(s.ctx, s.ticket.ID)
	s.NoError(err)
	s.Equal(int64(2), sold)
	used, err := s.tickets.CountUsed(s.ctx, s.ticket.ID)
	s.NoError(err)
	s.Equal(int64(1), used)

	s.Require().NoError(s.tickets.Delete(s.ctx, s.ticket.ID))
	_, err = s.tickets.CountSold(s.ctx, s.ticket.ID)
	s.assertKind(err, types.KIND_NOT_FOUND, types.ERR_TICKET_NOT_FOUND)
	s.assertKind(s.tickets.Delete(s.ctx, s.ticket.ID), types.KIND_NOT_FOUND, types.ERR_TICKET_NOT_FOUND)
}

func mustFind(s *ServicesTestSuite, id uint) *models.Ticket {
	ticket, err := s.store.FindTicket(s.ctx, id)
	s.Require().NoError(err)
	return ticket
}
