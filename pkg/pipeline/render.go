package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/render"
	"github.com/matzehuels/dungeontower/pkg/render/mapsvg"
)

// Render generates output artifacts in the requested formats.
// The SVG is drawn once and converted for PNG and PDF.
func Render(ctx context.Context, doc *maplayout.Document, opts Options) (map[string][]byte, error) {
	svg := mapsvg.RenderSVG(doc, opts.SVGOptions()...)
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case render.FormatSVG:
			data = svg
		case render.FormatPNG:
			data, err = render.ToPNG(ctx, svg, 1)
		case render.FormatPDF:
			data, err = render.ToPDF(ctx, svg)
		case FormatJSON:
			data, err = maplayout.Marshal(doc)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}
