// Package errors provides typed failures for report generation and mark entry.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidMark is a raw score that is non-numeric or outside [0, maxMarks].
	CodeInvalidMark Code = "INVALID_MARK"
	// CodeTemplateMissing means the report template could not be located or opened.
	CodeTemplateMissing Code = "TEMPLATE_MISSING"
	// CodeIOFailure means reading the template or writing the output was interrupted.
	CodeIOFailure Code = "IO_FAILURE"
	// CodeSubjectUnmatched marks a course that maps to no report subject.
	// It is informational: the course is skipped.
	CodeSubjectUnmatched Code = "SUBJECT_UNMATCHED"
)

// MessageID returns the i18n message ID used for user-facing text.
func (c Code) MessageID() string {
	switch c {
	case CodeInvalidMark:
		return "ErrInvalidMark"
	case CodeTemplateMissing:
		return "ErrTemplateMissing"
	case CodeIOFailure:
		return "ErrIOFailure"
	case CodeSubjectUnmatched:
		return "ErrSubjectUnmatched"
	default:
		return "ErrUnknown"
	}
}
