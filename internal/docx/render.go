// Package docx produces report documents from a DOCX template by rewriting
// merge fields inside the template's zip container.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	apperrors "github.com/pavelanni/reportcard/internal/errors"
)

// Parts of a DOCX package that Render rewrites. Every other entry is copied
// through unchanged.
const (
	DocumentPart = "word/document.xml"
	SettingsPart = "word/settings.xml"
)

// Render writes a copy of template to w with merge fields in the document
// part replaced by fields and the mail-merge data source removed from the
// settings part. Other entries keep their name, compression method and
// compressed bytes.
func Render(template []byte, fields map[string]string, w io.Writer) error {
	zr, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTemplateMissing, "template is not a DOCX archive", err)
	}

	zw := zip.NewWriter(w)
	zw.SetComment(zr.Comment)
	for _, f := range zr.File {
		switch f.Name {
		case DocumentPart:
			err = rewriteEntry(zw, f, func(s string) string { return ReplaceFields(s, fields) })
		case SettingsPart:
			err = rewriteEntry(zw, f, StripMailMerge)
		default:
			err = zw.Copy(f)
		}
		if err != nil {
			return apperrors.Wrap(apperrors.CodeIOFailure, fmt.Sprintf("copy entry %s", f.Name), err)
		}
	}
	if err := zw.Close(); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "finish archive", err)
	}
	return nil
}

func rewriteEntry(zw *zip.Writer, f *zip.File, transform func(string) string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	hdr := &zip.FileHeader{
		Name:           f.Name,
		Comment:        f.Comment,
		Method:         f.Method,
		ModifiedTime:   f.ModifiedTime,
		ModifiedDate:   f.ModifiedDate,
		Modified:       f.Modified,
		NonUTF8:        f.NonUTF8,
		CreatorVersion: f.CreatorVersion,
		ExternalAttrs:  f.ExternalAttrs,
	}
	out, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if _, err := io.WriteString(out, transform(string(data))); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
