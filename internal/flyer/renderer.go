package flyer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"regexp"

	"flyerxpress/internal/models"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	Width  = 800
	Height = 600

	qrSide   = 120
	qrMargin = 20
)

var whitespace = regexp.MustCompile(`\s+`)

// Renderer paints flyers. Parsed fonts are shared; faces are created per
// render since truetype faces cache glyphs and are not safe to share.
type Renderer struct {
	Footer  string
	regular *truetype.Font
	bold    *truetype.Font
}

func NewRenderer(footer string) (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Renderer{Footer: footer, regular: regular, bold: bold}, nil
}

// Render draws spec onto a fresh canvas. Identical specs give identical pixels.
func (r *Renderer) Render(spec models.FlyerDesignSpec) image.Image {
	return r.paint(spec).Image()
}

func (r *Renderer) RenderPNG(spec models.FlyerDesignSpec) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.paint(spec).EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode flyer: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) paint(spec models.FlyerDesignSpec) *gg.Context {
	dc := gg.NewContext(Width, Height)
	palette := ResolvePalette(spec.ColorScheme)

	grad := gg.NewLinearGradient(0, 0, Width, Height)
	grad.AddColorStop(0, palette.Primary)
	grad.AddColorStop(1, palette.Secondary)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, Width, Height)
	dc.Fill()

	drawDecorations(dc, Decorations(spec.Theme), palette.Accent)
	r.drawText(dc, spec, palette)

	if spec.Link != "" {
		drawLinkQR(dc, spec.Link)
	}
	return dc
}

func drawDecorations(dc *gg.Context, shapes []Shape, accent color.Color) {
	dc.SetColor(accent)
	for _, s := range shapes {
		dc.NewSubPath()
		switch s.Kind {
		case ShapePolygon:
			for i, p := range s.Points {
				if i == 0 {
					dc.MoveTo(p.X, p.Y)
				} else {
					dc.LineTo(p.X, p.Y)
				}
			}
			dc.ClosePath()
		case ShapeRect:
			dc.DrawRectangle(s.Points[0].X, s.Points[0].Y, s.W, s.H)
		case ShapeCircle:
			dc.DrawCircle(s.Points[0].X, s.Points[0].Y, s.Radius)
		case ShapeLine:
			dc.DrawLine(s.Points[0].X, s.Points[0].Y, s.Points[1].X, s.Points[1].Y)
		}
		if s.Fill {
			dc.Fill()
		} else {
			dc.SetLineWidth(s.LineWidth)
			dc.Stroke()
		}
	}
}

func (r *Renderer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
}

func (r *Renderer) drawText(dc *gg.Context, spec models.FlyerDesignSpec, palette Palette) {
	cx := float64(Width) / 2
	white := color.White

	lines := []struct {
		face  font.Face
		color color.Color
		text  string
		y     float64
	}{
		{r.face(r.bold, 48), white, spec.Title, 150},
		{r.face(r.regular, 24), white, spec.Description, 200},
		{r.face(r.regular, 20), white, "Date: " + spec.Date, 250},
		{r.face(r.regular, 20), white, "Location: " + spec.Location, 280},
		{r.face(r.bold, 36), palette.Accent, "$" + spec.Price, 350},
		{r.face(r.regular, 16), white, r.Footer, 550},
	}
	for _, l := range lines {
		dc.SetFontFace(l.face)
		dc.SetColor(l.color)
		dc.DrawStringAnchored(l.text, cx, l.y, 0.5, 0)
	}
}

func drawLinkQR(dc *gg.Context, link string) {
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		// Links too long for a QR code are left off.
		return
	}
	dc.DrawImage(q.Image(qrSide), Width-qrSide-qrMargin, Height-qrSide-qrMargin)
}

// DownloadName is the attachment name for a flyer: whitespace runs in the
// title become a single dash.
func DownloadName(title string) string {
	return fmt.Sprintf("flyer-%s.png", whitespace.ReplaceAllString(title, "-"))
}
