package flyer

import (
	"fmt"
	"image/color"

	"flyerxpress/internal/models"
)

type Palette struct {
	Primary   color.RGBA
	Secondary color.RGBA
	Accent    color.RGBA
}

var palettes = map[models.ColorScheme]Palette{
	models.SchemeBlue:   mustPalette("#1e3a8a", "#3b82f6", "#60a5fa"),
	models.SchemePurple: mustPalette("#581c87", "#8b5cf6", "#a78bfa"),
	models.SchemeGreen:  mustPalette("#166534", "#22c55e", "#4ade80"),
	models.SchemeRed:    mustPalette("#991b1b", "#ef4444", "#f87171"),
	models.SchemeOrange: mustPalette("#9a3412", "#f97316", "#fb923c"),
}

// ResolvePalette looks up a colour scheme. Unknown or blank schemes get blue.
func ResolvePalette(scheme models.ColorScheme) Palette {
	if p, ok := palettes[scheme]; ok {
		return p
	}
	return palettes[models.SchemeBlue]
}

func mustPalette(primary, secondary, accent string) Palette {
	return Palette{Primary: mustHex(primary), Secondary: mustHex(secondary), Accent: mustHex(accent)}
}

func mustHex(s string) color.RGBA {
	c, err := parseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(s string) (color.RGBA, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("bad colour %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
