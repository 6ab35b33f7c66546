package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sopgen/internal/config"
	"sopgen/internal/logging"
	"sopgen/internal/sampler"
	"sopgen/internal/services"
	"sopgen/internal/sop"
)

const (
	stageName   = "rendering"
	fontFamily  = "Helvetica"
	lineHeight  = 6.0
	maxImageMM  = 110.0
	defaultName = "Your Company"
)

// Renderer lays out a procedure document as a PDF.
type Renderer struct {
	company string
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes the renderer.
type Option func(*Renderer)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logging.NewComponentLogger(logger, "renderer")
	}
}

// WithCompany overrides the configured company name.
func WithCompany(name string) Option {
	return func(r *Renderer) {
		if strings.TrimSpace(name) != "" {
			r.company = strings.TrimSpace(name)
		}
	}
}

// WithClock overrides the time source used for the issue date.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// New builds a renderer from configuration.
func New(cfg *config.Config, opts ...Option) *Renderer {
	r := &Renderer{
		company: defaultName,
		now:     time.Now,
		logger:  logging.NewComponentLogger(nil, "renderer"),
	}
	if cfg != nil && strings.TrimSpace(cfg.Render.Company) != "" {
		r.company = strings.TrimSpace(cfg.Render.Company)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Company returns the header name in display case.
func (r *Renderer) Company() string {
	return displayCase(r.company)
}

// RenderFile writes the PDF to path atomically.
func (r *Renderer) RenderFile(ctx context.Context, doc sop.Document, frames []sampler.Frame, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, stageName, "render", "output path is empty", nil)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, stageName, "render", "create output directory", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sopgen-*.pdf")
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "render", "create output file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := r.Render(ctx, doc, frames, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "render", "close output file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "render", "move output into place", err)
	}
	logging.WithContext(ctx, r.logger).Info("procedure rendered",
		logging.String("output", path),
		logging.Int("step_count", len(doc.Steps)),
	)
	return nil
}

// Render writes the PDF to w.
func (r *Renderer) Render(ctx context.Context, doc sop.Document, frames []sampler.Frame, w io.Writer) error {
	logger := logging.WithContext(ctx, r.logger)
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(doc.Title), false)
	pdf.SetAuthor(tr(r.Company()), false)
	pdf.SetCreator("sopgen", false)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")

	company := tr(r.Company())
	issued := r.now().Format("2006-01-02")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont(fontFamily, "B", 10)
		pdf.SetTextColor(90, 90, 90)
		left, _, right, _ := pdf.GetMargins()
		pageW, _ := pdf.GetPageSize()
		half := (pageW - left - right) / 2
		pdf.CellFormat(half, 6, company, "", 0, "L", false, 0, "")
		pdf.CellFormat(half, 6, "Issued "+issued, "", 1, "R", false, 0, "")
		pdf.SetDrawColor(180, 180, 180)
		pdf.Line(left, pdf.GetY()+1, pageW-right, pdf.GetY()+1)
		pdf.Ln(5)
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-14)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 18)
	pdf.MultiCell(0, 9, tr(doc.Title), "", "L", false)
	pdf.Ln(2)

	if strings.TrimSpace(doc.Description) != "" {
		r.heading(pdf, "Purpose")
		pdf.SetFont(fontFamily, "", 11)
		pdf.MultiCell(0, lineHeight, tr(doc.Description), "", "L", false)
		pdf.Ln(3)
	}

	if len(doc.SafetyNotes) > 0 {
		r.heading(pdf, "Safety Notes")
		pdf.SetFont(fontFamily, "", 11)
		pdf.SetFillColor(255, 243, 205)
		for _, note := range doc.SafetyNotes {
			pdf.MultiCell(0, lineHeight, tr("- "+note), "", "L", true)
		}
		pdf.Ln(3)
	}

	r.heading(pdf, "Procedure")
	placed := 0
	for i, step := range doc.Steps {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrValidation, stageName, "render", "cancelled", err)
		}
		number := step.StepNumber
		if number <= 0 {
			number = i + 1
		}
		pdf.SetFont(fontFamily, "B", 12)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("Step %d  (%s)", number, FormatTimestamp(step.TimestampSeconds))), "", "L", false)
		pdf.SetFont(fontFamily, "", 11)
		pdf.MultiCell(0, lineHeight, tr(step.Instruction), "", "L", false)

		if frame, ok := NearestFrame(frames, step.TimestampSeconds); ok {
			if err := r.placeImage(pdf, frame, fmt.Sprintf("step-%d", i)); err != nil {
				logging.WarnWithContext(logger, "frame image skipped", "render_image_skipped",
					logging.Int("step_number", number),
					logging.Int("frame_index", frame.SequenceIndex),
					logging.Error(err),
					logging.String(logging.FieldImpact, "step is rendered without an image"),
				)
			} else {
				placed++
			}
		}
		if strings.TrimSpace(step.Reasoning) != "" {
			pdf.SetFont(fontFamily, "I", 9)
			pdf.SetTextColor(90, 90, 90)
			pdf.MultiCell(0, 5, tr("Why: "+step.Reasoning), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return services.Wrap(services.ErrValidation, stageName, "render", "write pdf", err)
	}
	logger.Debug("pdf layout complete",
		logging.Int("pages", pdf.PageNo()),
		logging.Int("images_placed", placed),
	)
	return nil
}

func (r *Renderer) heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont(fontFamily, "B", 13)
	pdf.SetTextColor(31, 56, 100)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func (r *Renderer) placeImage(pdf *fpdf.Fpdf, frame sampler.Frame, name string) error {
	data := frame.Image
	if len(data) == 0 && frame.StoredPath != "" {
		loaded, err := os.ReadFile(frame.StoredPath)
		if err != nil {
			return err
		}
		data = loaded
	}
	if len(data) == 0 {
		return fmt.Errorf("frame %d has no image data", frame.SequenceIndex)
	}
	opts := fpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := pdf.Error(); err != nil {
		pdf.ClearError()
		return err
	}
	if info == nil || info.Width() <= 0 {
		return fmt.Errorf("frame %d image is unreadable", frame.SequenceIndex)
	}
	w, h := fitImage(info.Width(), info.Height(), maxImageMM)

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h+2 > pageH-bottom-10 {
		pdf.AddPage()
	}
	left, _, _, _ := pdf.GetMargins()
	y := pdf.GetY() + 1
	pdf.ImageOptions(name, left, y, w, h, false, opts, 0, "")
	pdf.SetY(y + h + 2)
	return nil
}

// fitImage scales an image to maxWidth millimetres, preserving aspect ratio.
func fitImage(width, height, maxWidth float64) (float64, float64) {
	if width <= 0 || height <= 0 {
		return maxWidth, maxWidth * 9 / 16
	}
	return maxWidth, height * maxWidth / width
}

// NearestFrame returns the frame whose timestamp is closest to ts. Ties go to
// the earlier frame.
func NearestFrame(frames []sampler.Frame, ts float64) (sampler.Frame, bool) {
	if len(frames) == 0 {
		return sampler.Frame{}, false
	}
	best := frames[0]
	bestDelta := math.Abs(best.TimestampSeconds - ts)
	for _, f := range frames[1:] {
		delta := math.Abs(f.TimestampSeconds - ts)
		if delta < bestDelta {
			best, bestDelta = f, delta
		}
	}
	return best, true
}

// FormatTimestamp renders seconds as m:ss.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func displayCase(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	// Leave names that already carry deliberate capitals (ACME, McKinsey) alone.
	if name != strings.ToLower(name) {
		return name
	}
	return cases.Title(language.English).String(name)
}
