package flyer

import "flyerxpress/internal/models"

type ShapeKind int

const (
	ShapePolygon ShapeKind = iota
	ShapeRect
	ShapeCircle
	ShapeLine
)

type Point struct {
	X, Y float64
}

// Shape is one decoration in canvas coordinates. Rect uses Points[0] as the
// top-left corner with W and H; Circle uses Points[0] as centre with Radius.
type Shape struct {
	Kind      ShapeKind
	Points    []Point
	W, H      float64
	Radius    float64
	Fill      bool
	LineWidth float64
}

// Decorations returns the theme's shapes for a Width×Height canvas. They are
// always drawn in the palette's accent colour. Unknown themes have none.
func Decorations(theme models.FlyerTheme) []Shape {
	switch theme {
	case models.ThemeFuturistic:
		shapes := make([]Shape, 0, 5)
		for i := 0; i < 5; i++ {
			x := 100 + float64(i)*120
			shapes = append(shapes, Shape{
				Kind:      ShapePolygon,
				Points:    []Point{{x, 100}, {x + 50, 150}, {x, 200}},
				LineWidth: 2,
			})
		}
		return shapes
	case models.ThemeElegant:
		return []Shape{{
			Kind:      ShapeRect,
			Points:    []Point{{50, 50}},
			W:         Width - 100,
			H:         Height - 100,
			LineWidth: 3,
		}}
	case models.ThemeVibrant:
		shapes := make([]Shape, 0, 8)
		for i := 0; i < 8; i++ {
			shapes = append(shapes, Shape{
				Kind:   ShapeCircle,
				Points: []Point{{100 + float64(i)*80, 80}},
				Radius: 20,
				Fill:   true,
			})
		}
		return shapes
	case models.ThemeMinimal:
		return []Shape{
			{Kind: ShapeLine, Points: []Point{{100, 100}, {700, 100}}, LineWidth: 1},
			{Kind: ShapeLine, Points: []Point{{100, 500}, {700, 500}}, LineWidth: 1},
		}
	}
	return nil
}
