package render

import (
	"bytes"
	"context"
	"testing"
)

const tinySVG = `<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4"><rect width="4" height="4"/></svg>`

func TestConvert(t *testing.T) {
	ctx := context.Background()
	if !Available() {
		if _, err := ToPDF(ctx, []byte(tinySVG)); err == nil {
			t.Error("ToPDF should fail without rsvg-convert")
		}
		t.Skip("rsvg-convert not installed")
	}

	png, err := ToPNG(ctx, []byte(tinySVG), 2)
	if err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("ToPNG did not produce a PNG")
	}
	pdf, err := ToPDF(ctx, []byte(tinySVG))
	if err != nil {
		t.Fatalf("ToPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("ToPDF did not produce a PDF")
	}
}
