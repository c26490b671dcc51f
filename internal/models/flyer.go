package models

type FlyerTheme string

const (
	ThemeFuturistic FlyerTheme = "futuristic"
	ThemeElegant    FlyerTheme = "elegant"
	ThemeVibrant    FlyerTheme = "vibrant"
	ThemeMinimal    FlyerTheme = "minimal"
)

type ColorScheme string

const (
	SchemeBlue   ColorScheme = "blue"
	SchemePurple ColorScheme = "purple"
	SchemeGreen  ColorScheme = "green"
	SchemeRed    ColorScheme = "red"
	SchemeOrange ColorScheme = "orange"
)

type FlyerDesignSpec struct {
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Date        string      `json:"date" yaml:"date"`
	Location    string      `json:"location" yaml:"location"`
	Price       string      `json:"price" yaml:"price"`
	Theme       FlyerTheme  `json:"theme" yaml:"theme"`
	ColorScheme ColorScheme `json:"color_scheme" yaml:"color_scheme"`
	// Link, when set, is encoded as a QR code in the bottom-right corner.
	Link string `json:"link,omitempty" yaml:"link,omitempty"`
}
