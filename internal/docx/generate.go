package docx

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	apperrors "github.com/pavelanni/reportcard/internal/errors"
)

// Synthesizer builds report documents from one template into one output directory.
// Each Generate call works on its own copy of the template and its own output
// file, so calls may run concurrently.
type Synthesizer struct {
	templates    TemplateSource
	templateName string
	outDir       string
}

// NewSynthesizer creates a Synthesizer. An empty templateName means
// DefaultTemplateName and an empty outDir means the system temp directory.
func NewSynthesizer(src TemplateSource, templateName, outDir string) *Synthesizer {
	if templateName == "" {
		templateName = DefaultTemplateName
	}
	if outDir == "" {
		outDir = os.TempDir()
	}
	return &Synthesizer{templates: src, templateName: templateName, outDir: outDir}
}

// Generate renders fields into a new document and returns its path. The
// document is written under a temporary name and renamed into place only
// once complete; on failure nothing is left behind.
func (s *Synthesizer) Generate(ctx context.Context, fields map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	template, err := s.readTemplate()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "create output directory", err)
	}
	tmp, err := os.CreateTemp(s.outDir, ".report-*.part")
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "create output file", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := Render(template, fields, bw); err != nil {
		return "", err
	}
	if err := bw.Flush(); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "write output file", err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "close output file", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	outPath := filepath.Join(s.outDir, "report-"+uuid.NewString()+".docx")
	if err := os.Rename(tmpPath, outPath); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "move output file into place", err)
	}
	committed = true

	slog.Info("generated report", "path", outPath, "template", s.templateName, "fields", len(fields))
	return outPath, nil
}

func (s *Synthesizer) readTemplate() ([]byte, error) {
	rc, err := s.templates.OpenTemplate(s.templateName)
	if err != nil {
		return nil, &apperrors.Error{
			Code:     apperrors.CodeTemplateMissing,
			Message:  fmt.Sprintf("open template %s", s.templateName),
			Metadata: map[string]string{"Name": s.templateName},
			Cause:    err,
		}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "read template "+s.templateName, err)
	}
	return data, nil
}
