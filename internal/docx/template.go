package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/pavelanni/reportcard/internal/errors"
)

// DefaultTemplateName is the logical name of the report card template.
const DefaultTemplateName = "report_card.docx"

// TemplateSource locates template artifacts by logical name.
type TemplateSource interface {
	OpenTemplate(name string) (io.ReadCloser, error)
}

// DirTemplates serves templates from a directory on disk.
type DirTemplates string

// OpenTemplate opens name inside the directory. Names that would escape
// the directory are reported as not existing.
func (d DirTemplates) OpenTemplate(name string) (io.ReadCloser, error) {
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("template %q: %w", name, fs.ErrNotExist)
	}
	return os.Open(filepath.Join(string(d), name))
}

// FallbackTemplates tries each source in order and returns the first
// template found.
type FallbackTemplates []TemplateSource

// OpenTemplate implements TemplateSource.
func (fb FallbackTemplates) OpenTemplate(name string) (io.ReadCloser, error) {
	err := fmt.Errorf("template %q: %w", name, fs.ErrNotExist)
	for _, src := range fb {
		rc, openErr := src.OpenTemplate(name)
		if openErr == nil {
			return rc, nil
		}
		err = openErr
	}
	return nil, err
}

// CheckTemplate reports whether data is a DOCX archive with a document part.
// It fails with TEMPLATE_MISSING otherwise.
func CheckTemplate(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTemplateMissing, "template is not a DOCX archive", err)
	}
	for _, f := range zr.File {
		if f.Name == DocumentPart {
			return nil
		}
	}
	return apperrors.New(apperrors.CodeTemplateMissing, "template has no "+DocumentPart)
}
