// flyer-render paints a flyer PNG from flags or a YAML design file.
//
//	flyer-render --title "Jazz Night" --theme vibrant --color purple -o jazz.png
//	flyer-render --spec design.yaml
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"flyerxpress/internal/flyer"
	"flyerxpress/internal/models"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const defaultFooter = "Generated by FlyerXpress"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		spec     models.FlyerDesignSpec
		specPath string
		output   string
		footer   string
		theme    string
		scheme   string
	)

	flagSet := pflag.NewFlagSet("flyer-render", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVar(&specPath, "spec", "", "YAML design file; flags given alongside it override its fields")
	flagSet.StringVar(&spec.Title, "title", "", "event title")
	flagSet.StringVar(&spec.Description, "description", "", "event description")
	flagSet.StringVar(&spec.Date, "date", "", "event date")
	flagSet.StringVar(&spec.Location, "location", "", "event location")
	flagSet.StringVar(&spec.Price, "price", "", "ticket price")
	flagSet.StringVar(&spec.Link, "link", "", "URL to encode as a QR code")
	flagSet.StringVar(&theme, "theme", "", "futuristic, elegant, vibrant or minimal")
	flagSet.StringVar(&scheme, "color", "", "blue, purple, green, red or orange")
	flagSet.StringVar(&footer, "footer", defaultFooter, "attribution line")
	flagSet.StringVarP(&output, "output", "o", "", "output file (default: flyer-<title>.png)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if specPath != "" {
		fromFile, err := loadSpec(specPath)
		if err != nil {
			return err
		}
		spec = merge(fromFile, spec, flagSet)
	}
	if theme != "" {
		spec.Theme = models.FlyerTheme(theme)
	}
	if scheme != "" {
		spec.ColorScheme = models.ColorScheme(scheme)
	}

	renderer, err := flyer.NewRenderer(footer)
	if err != nil {
		return err
	}
	data, err := renderer.RenderPNG(spec)
	if err != nil {
		return err
	}

	if output == "" {
		output = flyer.DownloadName(spec.Title)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", output, len(data))
	return nil
}

func loadSpec(path string) (models.FlyerDesignSpec, error) {
	var spec models.FlyerDesignSpec
	raw, err := os.ReadFile(path)
	if err != nil {
		return spec, fmt.Errorf("read spec: %w", err)
	}
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return spec, fmt.Errorf("parse spec %s: %w", path, err)
	}
	return spec, nil
}

// merge lays explicitly set flags over the file's values.
func merge(base, flags models.FlyerDesignSpec, flagSet *pflag.FlagSet) models.FlyerDesignSpec {
	set := func(name string, dst *string, value string) {
		if flagSet.Changed(name) {
			*dst = value
		}
	}
	set("title", &base.Title, flags.Title)
	set("description", &base.Description, flags.Description)
	set("date", &base.Date, flags.Date)
	set("location", &base.Location, flags.Location)
	set("price", &base.Price, flags.Price)
	set("link", &base.Link, flags.Link)
	return base
}
