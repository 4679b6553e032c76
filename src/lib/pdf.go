package lib

import (
	"apaeventus/src/services"
	"apaeventus/src/types"
	"apaeventus/src/utils"
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	ticketPageWidth  = 400
	ticketPageHeight = 600
	ticketMargin     = 30
	ticketQRSize     = 160
)

// TicketRenderer draws admission tickets as 400x600pt PDF pages.
type TicketRenderer struct {
	loc *time.Location
}

func NewTicketRenderer(loc *time.Location) *TicketRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketRenderer{loc: loc}
}

func (r *TicketRenderer) QRCode(content string) ([]byte, error) {
	return QRCodePNG(content)
}

func (r *TicketRenderer) RenderTicket(page types.TicketPage) ([]byte, error) {
	doc := r.NewDocument()
	if err := doc.AddPage(page); err != nil {
		return nil, err
	}
	return doc.Bytes()
}

func (r *TicketRenderer) NewDocument() services.TicketDocument {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: ticketPageWidth, Ht: ticketPageHeight},
	})
	pdf.SetMargins(ticketMargin, ticketMargin, ticketMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Ingressos", true)
	return &pdfDocument{pdf: pdf, renderer: r}
}

type pdfDocument struct {
	pdf      *fpdf.Fpdf
	renderer *TicketRenderer
	pages    int
}

func (d *pdfDocument) AddPage(page types.TicketPage) error {
	pdf := d.pdf
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := float64(ticketPageWidth - 2*ticketMargin)
	date, weekday := utils.FormatEventDate(page.EventDate, d.renderer.loc)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(width, 24, tr(page.Organization), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(width, 18, tr("Evento: "+page.EventTitle), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(width, 16, tr("Data do evento: "+date), "", 1, "L", false, 0, "")
	pdf.CellFormat(width, 16, tr(weekday), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.CellFormat(width, 16, tr("Nome: "+page.BuyerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(width, 16, tr("Email: "+page.BuyerEmail), "", 1, "L", false, 0, "")
	pdf.CellFormat(width, 16, tr("Celular: "+utils.FormatPhoneNumber(page.BuyerPhone)), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.MultiCell(width, 16, tr("Mostre este QRCODE na recepção da "+page.Organization), "", "C", false)
	pdf.CellFormat(width, 16, tr("Valor: "+utils.FormatPrice(page.Price)), "", 1, "C", false, 0, "")

	name := "qr-" + page.SaleID
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(page.QRCodePNG))
	x := float64(ticketPageWidth-ticketQRSize) / 2
	pdf.ImageOptions(name, x, pdf.GetY()+10, ticketQRSize, ticketQRSize, false, opts, 0, "")

	pdf.SetY(ticketPageHeight - ticketMargin - 20)
	pdf.SetFont("Helvetica", "I", 11)
	pdf.CellFormat(width, 16, tr("Obrigado por ajudar a "+page.Organization+"!"), "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return err
	}
	d.pages++
	return nil
}

func (d *pdfDocument) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
