package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

const ProviderLocal = "ledongthuc_pdf"

type Result struct {
	Text      string
	Pages     int
	PagesRead int
	Provider  string
}

// Extractor turns raw document bytes into plain text, reading at most
// maxPages pages (0 means no limit).
type Extractor interface {
	Extract(ctx context.Context, data []byte, maxPages int) (Result, error)
}

// IsPDF sniffs the %PDF- magic header.
func IsPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// Local extracts the text layer in-process.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Extract(ctx context.Context, data []byte, maxPages int) (res Result, err error) {
	res.Provider = ProviderLocal
	if !IsPDF(data) {
		return res, &Error{Kind: KindCorrupted, Cause: errors.New("missing %PDF- header")}
	}
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindCorrupted, Cause: fmt.Errorf("pdf reader panic: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return res, classify(err)
	}
	res.Pages = r.NumPage()
	limit := res.Pages
	if maxPages > 0 && maxPages < limit {
		limit = maxPages
	}

	var sb strings.Builder
	fonts := map[string]*pdf.Font{}
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return res, &Error{Kind: KindBackend, Cause: err}
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		txt, perr := p.GetPlainText(fonts)
		if perr != nil {
			return res, classify(perr)
		}
		res.PagesRead++
		sb.WriteString(txt)
		sb.WriteByte('\n')
	}

	res.Text = collapseWhitespace(sb.String())
	if res.Text == "" {
		return res, &Error{Kind: KindEmpty}
	}
	return res, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return &Error{Kind: KindPasswordProtected, Cause: err}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"), strings.Contains(msg, "encrypt"):
		return &Error{Kind: KindPasswordProtected, Cause: err}
	case strings.Contains(msg, "xref"), strings.Contains(msg, "malformed"),
		strings.Contains(msg, "invalid pdf"), strings.Contains(msg, "not a pdf"),
		strings.Contains(msg, "unexpected eof"), strings.Contains(msg, "trailer"):
		return &Error{Kind: KindCorrupted, Cause: err}
	default:
		return &Error{Kind: KindBackend, Cause: err}
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}
