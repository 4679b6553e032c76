package services_test

import (
	"apaeventus/src/types"
	"apaeventus/src/utils"
	"encoding/base64"
	"strings"
)

func (s *ServicesTestSuite) TestProcessFulfillsEverySale() {
	ids := []string{
		s.addSale(s.ticket.ID, types.PAYMENT_PENDING).ID,
		s.addSale(s.ticket.ID, types.PAYMENT_PENDING).ID,
		s.addSale(s.ticket.ID, types.PAYMENT_PENDING).ID,
	}

	s.Require().NoError(s.fulfillment.Process(s.ctx, ids))

	s.Equal(6, s.storage.Uploads)
	for _, sale := range s.store.Sales() {
		key := utils.ObjectKey("Festa Junina", sale.ID)
		s.Contains(s.storage.Objects, key+".pdf")
		s.Contains(s.storage.Objects, key+".png")
		s.Equal(types.PAYMENT_PAID, sale.PaymentStatus)
		s.Require().NotNil(sale.PdfURL)
		s.Equal("https://bucket.test/tickets/festa-junina/"+sale.ID+".pdf", *sale.PdfURL)
		s.Require().NotNil(sale.QrCodeDataURL)
		s.True(strings.HasPrefix(*sale.QrCodeDataURL, "data:image/png;base64,"))
	}

	s.Require().Len(s.renderer.Documents, 1)
	s.ElementsMatch(ids, s.renderer.Documents[0])

	s.Require().Equal(1, s.mailer.Count())
	msg := s.mailer.Sent[0]
	s.Equal("maria@example.com", msg.To)
	s.Equal("ApaEventus: Seu ingresso chegou!", msg.Subject)
	s.Equal("ingressos.pdf", msg.AttachmentName)
	attachment, err := base64.StdEncoding.DecodeString(msg.AttachmentBase64)
	s.Require().NoError(err)
	s.Equal(3, strings.Count(string(attachment), "pdf:"))
}

func (s *ServicesTestSuite) TestProcessStopsAtFirstFailure() {
	ids := []string{
		s.addSale(s.ticket.ID, types.PAYMENT_PENDING).ID,
		s.addSale(s.ticket.ID, types.PAYMENT_PENDING).ID,
	}
	s.storage.FailSuffix = ".png"

	err := s.fulfillment.Process(s.ctx, ids)
	s.assertKind(err, types.KIND_EXTERNAL_DEPENDENCY, "Could not upload ticket QR code")

	for _, sale := range s.store.Sales() {
		s.Equal(types.PAYMENT_PENDING, sale.PaymentStatus)
	}
	s.Equal(0, s.mailer.Count())
}

func (s *ServicesTestSuite) TestProcessRejectsUnknownSales() {
	s.NoError(s.fulfillment.Process(s.ctx, nil))

	err := s.fulfillment.Process(s.ctx, []string{"00000000-0000-0000-0000-000000000000"})
	s.Error(err)
	s.Equal(0, s.mailer.Count())
}
