package services

import (
	"apaeventus/src/models"
	"apaeventus/src/monitoring"
	"apaeventus/src/types"
	"apaeventus/src/utils"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"
)

type FulfillmentOptions struct {
	Organization   string
	EmailSubject   string
	EmailBody      string
	AttachmentName string
}

// FulfillmentService turns confirmed sales into QR codes, PDFs and one email.
type FulfillmentService struct {
	store    Store
	renderer TicketRenderer
	storage  Storage
	mailer   Mailer
	opts     FulfillmentOptions
}

func NewFulfillmentService(store Store, renderer TicketRenderer, storage Storage, mailer Mailer, opts FulfillmentOptions) *FulfillmentService {
	if opts.AttachmentName == "" {
		opts.AttachmentName = "ingressos.pdf"
	}
	return &FulfillmentService{
		store:    store,
		renderer: renderer,
		storage:  storage,
		mailer:   mailer,
		opts:     opts,
	}
}

// Process fulfills one batch: all sales share a ticket and a buyer. The first
// failure stops the loop; sales handled before it stay paid. Object keys are
// derived from the sale id, so running a batch again overwrites its artifacts.
func (s *FulfillmentService) Process(ctx context.Context, saleIDs []string) error {
	if len(saleIDs) == 0 {
		return nil
	}
	started := time.Now()
	defer monitoring.RecordFulfillment(started)

	sales, err := s.store.FindSalesForFulfillment(ctx, saleIDs)
	if err != nil {
		return fmt.Errorf("error loading sales for fulfillment: %w", err)
	}
	if len(sales) != len(saleIDs) {
		return fmt.Errorf("expected %d sales for fulfillment, found %d", len(saleIDs), len(sales))
	}

	doc := s.renderer.NewDocument()
	var buyer *models.User
	for i := range sales {
		sale := &sales[i]
		if sale.Ticket == nil || sale.User == nil {
			return fmt.Errorf("sale %s is missing its ticket or buyer", sale.ID)
		}
		buyer = sale.User
		page, err := s.fulfillSale(ctx, sale)
		if err != nil {
			log.Printf("Fulfillment of sale %s failed: %s\n", sale.ID, err.Error())
			return err
		}
		if err := doc.AddPage(*page); err != nil {
			return fmt.Errorf("error adding sale %s to combined document: %w", sale.ID, err)
		}
	}

	combined, err := doc.Bytes()
	if err != nil {
		return fmt.Errorf("error finalizing combined document: %w", err)
	}
	msg := types.EmailMessage{
		To:               buyer.Email,
		Subject:          s.opts.EmailSubject,
		Body:             s.opts.EmailBody,
		AttachmentBase64: base64.StdEncoding.EncodeToString(combined),
		AttachmentName:   s.opts.AttachmentName,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return types.ExternalDependency("Could not send tickets email", err)
	}
	log.Printf("Sent %d tickets to %s\n", len(sales), buyer.Email)
	return nil
}

func (s *FulfillmentService) fulfillSale(ctx context.Context, sale *models.Sale) (*types.TicketPage, error) {
	qr, err := s.renderer.QRCode(sale.ID)
	if err != nil {
		return nil, fmt.Errorf("error generating QR code: %w", err)
	}
	page := types.TicketPage{
		SaleID:       sale.ID,
		Organization: s.opts.Organization,
		EventTitle:   sale.Ticket.Title,
		EventDate:    sale.Ticket.EventDate,
		BuyerName:    sale.User.Name,
		BuyerEmail:   sale.User.Email,
		BuyerPhone:   sale.User.Cellphone,
		Price:        sale.Ticket.Price,
		QRCodePNG:    qr,
	}
	pdf, err := s.renderer.RenderTicket(page)
	if err != nil {
		return nil, fmt.Errorf("error rendering ticket: %w", err)
	}

	key := utils.ObjectKey(sale.Ticket.Title, sale.ID)
	pdfURL, err := s.storage.Upload(ctx, key+".pdf", pdf, "application/pdf")
	if err != nil {
		return nil, types.ExternalDependency("Could not upload ticket PDF", err)
	}
	qrURL, err := s.storage.Upload(ctx, key+".png", qr, "image/png")
	if err != nil {
		return nil, types.ExternalDependency("Could not upload ticket QR code", err)
	}

	artifacts := types.SaleArtifacts{
		PdfURL:        pdfURL,
		QrCodeURL:     qrURL,
		QrCodeDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(qr),
	}
	if err := s.store.MarkSalePaid(ctx, sale.ID, artifacts); err != nil {
		return nil, fmt.Errorf("error marking sale as paid: %w", err)
	}
	return &page, nil
}
