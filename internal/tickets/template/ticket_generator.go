package template

import (
	"bytes"
	"fmt"
	"image/png"

	"flyerxpress/internal/models"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	regularFont = "go"
	boldFont    = "go-bold"
	marginX     = 50.0
	qrSide      = 160.0
)

type TicketPDFGenerator struct {
	Footer string
}

func NewTicketPDFGenerator(footer string) *TicketPDFGenerator {
	return &TicketPDFGenerator{Footer: footer}
}

// Generate lays out one A4 page per ticket. qrCode is a PNG and may be empty.
func (g *TicketPDFGenerator) Generate(ticket models.Ticket, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFontData(regularFont, goregular.TTF); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.AddTTFFontData(boldFont, gobold.TTF); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	if err := addHeader(pdf, ticket); err != nil {
		return nil, err
	}
	if err := addTicketInfo(pdf, ticket); err != nil {
		return nil, err
	}
	if len(qrCode) > 0 {
		addQRCode(pdf, qrCode)
	}
	if err := g.addFooter(pdf); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addHeader(pdf *gopdf.GoPdf, ticket models.Ticket) error {
	if err := pdf.SetFont(boldFont, "", 24); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(marginX, 60)
	if err := pdf.Cell(nil, "EVENT TICKET"); err != nil {
		return err
	}
	if ticket.ListingTitle == "" {
		return nil
	}
	if err := pdf.SetFont(regularFont, "", 18); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(marginX, 100)
	return pdf.Cell(nil, ticket.ListingTitle)
}

func addTicketInfo(pdf *gopdf.GoPdf, ticket models.Ticket) error {
	if err := pdf.SetFont(regularFont, "", 12); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	info := []struct {
		Label string
		Value string
	}{
		{"Ticket ID", ticket.TicketID},
		{"Order", ticket.OrderID},
		{"Transaction", ticket.TransactionID},
		{"Price paid", ticket.PricePaid.StringFixed(2)},
		{"Issued", ticket.IssuedAt.Format("2006-01-02 15:04")},
	}

	pdf.SetXY(marginX, 150)
	for _, item := range info {
		pdf.SetX(marginX)
		if err := pdf.Cell(nil, item.Label+": "+item.Value); err != nil {
			return err
		}
		pdf.Br(22)
	}
	return nil
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	y := pdf.GetY() + 20
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.SetXY(marginX, y)
		pdf.Cell(nil, "Failed to load QR code")
		return
	}
	if err := pdf.ImageFrom(img, marginX, y, &gopdf.Rect{W: qrSide, H: qrSide}); err != nil {
		pdf.SetXY(marginX, y)
		pdf.Cell(nil, "Failed to draw QR code")
	}
}

func (g *TicketPDFGenerator) addFooter(pdf *gopdf.GoPdf) error {
	if g.Footer == "" {
		return nil
	}
	if err := pdf.SetFont(regularFont, "", 10); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(marginX, 780)
	return pdf.Cell(nil, g.Footer)
}
