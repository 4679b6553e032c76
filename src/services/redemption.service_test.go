package services_test

import (
	"apaeventus/src/types"
)

func (s *ServicesTestSuite) TestRedemptionToggle() {
	sale := s.addSale(s.ticket.ID, types.PAYMENT_PAID)

	res, err := s.redemption.MarkUsed(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.True(res.Used)

	_, err = s.redemption.MarkUsed(s.ctx, sale.ID)
	s.assertKind(err, types.KIND_CONFLICT, types.ERR_SALE_ALREADY_USED)

	res, err = s.redemption.MarkUnused(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.False(res.Used)

	_, err = s.redemption.MarkUnused(s.ctx, sale.ID)
	s.assertKind(err, types.KIND_CONFLICT, types.ERR_SALE_NOT_USED_YET)

	used, _ := s.store.CountUsedSales(s.ctx, s.ticket.ID)
	s.Equal(int64(0), used)
}

func (s *ServicesTestSuite) TestRedemptionRequiresPayment() {
	sale := s.addSale(s.ticket.ID, types.PAYMENT_PENDING)

	_, err := s.redemption.MarkUsed(s.ctx, sale.ID)
	s.assertKind(err, types.KIND_CONFLICT, types.ERR_SALE_NOT_PAID)
}

func (s *ServicesTestSuite) TestRedemptionUnknownSale() {
	_, err := s.redemption.MarkUsed(s.ctx, "00000000-0000-0000-0000-000000000000")
	s.assertKind(err, types.KIND_NOT_FOUND, types.ERR_SALE_NOT_FOUND)

	_, err = s.redemption.MarkUnused(s.ctx, "00000000-0000-0000-0000-000000000000")
	s.assertKind(err, types.KIND_NOT_FOUND, types.ERR_SALE_NOT_FOUND)
}
