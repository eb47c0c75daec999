package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/exampaper-backend/internal/platform/ctxutil"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/pdftext"
)

const ProviderDocumentAI = "gcp_documentai"

type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Credentials      string
	Timeout          time.Duration
}

func (c DocumentAIConfig) Enabled() bool {
	return strings.TrimSpace(c.ProjectID) != "" && strings.TrimSpace(c.ProcessorID) != ""
}

// DocumentOCR runs a Document AI OCR processor over raw PDF bytes. It is used
// for scanned study material that has no text layer.
type DocumentOCR struct {
	log       *logger.Logger
	processor string
	timeout   time.Duration
	process   func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)
	close     func() error
}

var _ pdftext.Extractor = (*DocumentOCR)(nil)

func NewDocumentOCR(ctx context.Context, log *logger.Logger, cfg DocumentAIConfig) (*DocumentOCR, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("DOCUMENTAI_PROJECT_ID and DOCUMENTAI_PROCESSOR_ID are required")
	}
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptions(cfg.Credentials)...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	name := processorName(cfg.ProjectID, location, cfg.ProcessorID, cfg.ProcessorVersion)
	slog := log.With("service", "gcp.DocumentOCR")
	slog.Info("Document AI initialized", "endpoint", endpoint, "processor", name)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &DocumentOCR{
		log:       slog,
		processor: name,
		timeout:   timeout,
		process: func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
			return c.ProcessDocument(ctx, req)
		},
		close: c.Close,
	}, nil
}

func (d *DocumentOCR) Close() error {
	if d == nil || d.close == nil {
		return nil
	}
	return d.close()
}

func (d *DocumentOCR) Extract(ctx context.Context, data []byte, maxPages int) (pdftext.Result, error) {
	res := pdftext.Result{Provider: ProviderDocumentAI}
	if len(data) == 0 {
		return res, &pdftext.Error{Kind: pdftext.KindEmpty, Cause: errors.New("no bytes")}
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), d.timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: "application/pdf"},
		},
	}
	if maxPages > 0 {
		req.ProcessOptions = &documentaipb.ProcessOptions{
			PageRange: &documentaipb.ProcessOptions_FromStart{FromStart: int32(maxPages)},
		}
	}
	resp, err := d.process(ctx, req)
	if err != nil {
		return res, &pdftext.Error{Kind: pdftext.KindBackend, Cause: fmt.Errorf("documentai ProcessDocument: %w", err)}
	}
	if resp == nil || resp.Document == nil {
		return res, &pdftext.Error{Kind: pdftext.KindEmpty, Cause: errors.New("empty document response")}
	}
	res.Text, res.PagesRead = documentText(resp.Document)
	res.Pages = res.PagesRead
	if strings.TrimSpace(res.Text) == "" {
		return res, &pdftext.Error{Kind: pdftext.KindEmpty, Cause: errors.New("ocr found no text")}
	}
	d.log.Debug("Document AI extracted text", "pages", res.PagesRead, "chars", len(res.Text))
	return res, nil
}

// documentText joins paragraph text page by page, falling back to the full
// document text when the processor returns no paragraph layout.
func documentText(doc *documentaipb.Document) (string, int) {
	var sb strings.Builder
	pages := 0
	for _, p := range doc.GetPages() {
		if p == nil {
			continue
		}
		pages++
		for _, para := range p.GetParagraphs() {
			t := strings.TrimSpace(textFromAnchor(doc.GetText(), para.GetLayout().GetTextAnchor()))
			if t == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(t)
		}
	}
	if sb.Len() == 0 {
		return strings.TrimSpace(doc.GetText()), pages
	}
	return sb.String(), pages
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func processorName(project, location, processorID, version string) string {
	project = strings.TrimSpace(project)
	location = strings.TrimSpace(location)
	processorID = strings.TrimSpace(processorID)
	version = strings.TrimSpace(version)
	if project == "" || location == "" || processorID == "" {
		return ""
	}
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		return base + "/processorVersions/" + version
	}
	return base
}
