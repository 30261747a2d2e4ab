// Package pdf renders receipts with the typst compiler.
package pdf

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/sangkips/receipt-api/internal/config"
	"github.com/sangkips/receipt-api/internal/domain/receipting"
	"github.com/sangkips/receipt-api/internal/logger"
)

//go:embed templates/receipt.typ
var receiptTemplate []byte

const (
	templateFile = "receipt.typ"
	dataFile     = "data.json"
	logoFile     = "logo.png"
	sealFile     = "seal.png"
	outputFile   = "receipt.pdf"
)

// Renderer turns a receipt document into PDF bytes
type Renderer interface {
	RenderReceipt(ctx context.Context, doc *receipting.Document) ([]byte, error)
}

type typstRenderer struct {
	binary  string
	fontDir string
	workDir string
	timeout time.Duration
	log     *logger.Logger
}

func NewTypstRenderer(cfg *config.PDFConfig, log *logger.Logger) Renderer {
	return &typstRenderer{
		binary:  cfg.TypstBinary,
		fontDir: cfg.FontDir,
		workDir: cfg.WorkDir,
		timeout: cfg.Timeout,
		log:     log,
	}
}

// CheckBinary reports whether the typst binary can be found
func CheckBinary(binary string) error {
	_, err := exec.LookPath(binary)
	return err
}

// templateData is the JSON handed to the template. Amounts are preformatted so
// the template never does arithmetic.
type templateData struct {
	No            int               `json:"no"`
	IssuedDate    string            `json:"issued_date"`
	RecipientName string            `json:"recipient_name"`
	Note          string            `json:"note"`
	TotalLabel    string            `json:"total_label"`
	BaseLabel     string            `json:"base_label"`
	TaxLabel      string            `json:"tax_label"`
	TaxRateLabel  string            `json:"tax_rate_label"`
	Issuer        receipting.Issuer `json:"issuer"`
	HasLogo       bool              `json:"has_logo"`
	HasSeal       bool              `json:"has_seal"`
}

func newTemplateData(doc *receipting.Document) templateData {
	return templateData{
		No:            doc.No,
		IssuedDate:    doc.IssuedDate,
		RecipientName: doc.RecipientName,
		Note:          doc.Note,
		TotalLabel:    receipting.FormatYen(doc.Split.Total) + "-",
		BaseLabel:     receipting.FormatYen(doc.Split.Base),
		TaxLabel:      receipting.FormatYen(doc.Split.Tax),
		TaxRateLabel:  doc.TaxRateLabel,
		Issuer:        doc.Issuer,
		HasLogo:       len(doc.Logo) > 0,
		HasSeal:       len(doc.Seal) > 0,
	}
}

func (r *typstRenderer) RenderReceipt(ctx context.Context, doc *receipting.Document) ([]byte, error) {
	dir, err := os.MkdirTemp(r.workDir, "receipt-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create render directory")
	}
	defer os.RemoveAll(dir)

	data, err := json.Marshal(newTemplateData(doc))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode receipt data")
	}

	files := map[string][]byte{
		templateFile: receiptTemplate,
		dataFile:     data,
	}
	if len(doc.Logo) > 0 {
		files[logoFile] = doc.Logo
	}
	if len(doc.Seal) > 0 {
		files[sealFile] = doc.Seal
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o600); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", name)
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := []string{"compile", "--root", dir}
	if r.fontDir != "" {
		args = append(args, "--font-path", r.fontDir)
	}
	args = append(args, "--input", "data="+dataFile, templateFile, outputFile)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "typst compilation aborted")
		}
		return nil, errors.WithDetailf(errors.Wrap(err, "typst compilation failed"), "stderr: %s", stderr.String())
	}

	pdf, err := os.ReadFile(filepath.Join(dir, outputFile))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rendered pdf")
	}
	r.log.Debugw("rendered receipt", "no", doc.No, "bytes", len(pdf), "elapsed", time.Since(start))
	return pdf, nil
}
