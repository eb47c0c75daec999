package pdftext

import (
	"context"

	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

// Fallback runs Secondary when Primary finds no text layer, which is the
// usual shape of a scanned document. Other failures are returned as-is.
type Fallback struct {
	Primary   Extractor
	Secondary Extractor
	log       *logger.Logger
}

func NewFallback(log *logger.Logger, primary, secondary Extractor) Extractor {
	if secondary == nil {
		return primary
	}
	return &Fallback{Primary: primary, Secondary: secondary, log: log.With("service", "pdftext.Fallback")}
}

func (f *Fallback) Extract(ctx context.Context, data []byte, maxPages int) (Result, error) {
	res, err := f.Primary.Extract(ctx, data, maxPages)
	if err == nil || KindOf(err) != KindEmpty {
		return res, err
	}
	f.log.Info("No text layer found; trying OCR extractor", "pages", res.Pages)
	alt, altErr := f.Secondary.Extract(ctx, data, maxPages)
	if altErr != nil {
		f.log.Warn("OCR extractor failed", "error", altErr)
		return res, err
	}
	if alt.Pages == 0 {
		alt.Pages = res.Pages
	}
	return alt, nil
}
