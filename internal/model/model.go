package model

import (
	"context"
	"time"
)

// NumTerms is the number of grading periods in a school year.
const NumTerms = 4

// Student represents an enrolled student.
type Student struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	GradeLevel int    `json:"grade_level" validate:"min=0,max=13"`
}

// FullName returns "First Last".
func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	if s.FirstName == "" {
		return s.LastName
	}
	return s.FirstName + " " + s.LastName
}

// Course represents a course taught to one grade level.
type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name" validate:"required"`
	GradeLevel int    `json:"grade_level" validate:"min=0,max=13"`
}

// Assignment is a graded piece of work within a course.
type Assignment struct {
	ID       int64      `json:"id"`
	CourseID int64      `json:"course_id"`
	Title    string     `json:"title" validate:"required"`
	MaxMarks int        `json:"max_marks" validate:"min=0"` // 0 means not set
	Term     int        `json:"term" validate:"min=1,max=4"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

// StudentMarks maps assignment ID to raw mark for one student.
// A missing key means the assignment has not been graded.
type StudentMarks map[int64]int

// CourseMarks maps student ID to that student's marks.
type CourseMarks map[int64]StudentMarks

// For returns the marks recorded for a student, or nil.
func (m CourseMarks) For(studentID int64) StudentMarks {
	if m == nil {
		return nil
	}
	return m[studentID]
}

// Feedback maps student ID to a teacher's note for one course.
type Feedback map[int64]string

type langCtxKey struct{}

// ContextWithLang stores the UI language tag in context.
func ContextWithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langCtxKey{}, lang)
}

// LangFromContext retrieves the UI language from context (empty string if not set).
func LangFromContext(ctx context.Context) string {
	l, _ := ctx.Value(langCtxKey{}).(string)
	return l
}

// ReportConfig holds runtime report parameters set via CLI flags.
type ReportConfig struct {
	TemplateName string // logical name of the DOCX template
	OutputDir    string // where generated documents are written
	Lang         string
	FeedbackTone string // LLM drafting tone (formal, warm, brief)
}

// SchoolInfo describes the school printed on every report card.
type SchoolInfo struct {
	Name      string `json:"name"`
	Year      string `json:"year"` // e.g. "2025-2026"
	Principal string `json:"principal"`
}

// SchoolImport is used for loading school data from JSON.
type SchoolImport struct {
	School      *SchoolInfo      `json:"school,omitempty"`
	Students    []Student        `json:"students"`
	Courses     []Course         `json:"courses"`
	Assignments []Assignment     `json:"assignments"`
	Enrollments []EnrollmentItem `json:"enrollments"`
	Marks       []MarkItem       `json:"marks"`
	Feedback    []FeedbackItem   `json:"feedback"`
}

// EnrollmentItem places a student in a course.
type EnrollmentItem struct {
	StudentID int64 `json:"student_id"`
	CourseID  int64 `json:"course_id"`
}

// MarkItem is one raw mark in an import file.
type MarkItem struct {
	StudentID    int64 `json:"student_id"`
	AssignmentID int64 `json:"assignment_id"`
	Mark         int   `json:"mark"`
}

// FeedbackItem is one teacher note in an import file.
type FeedbackItem struct {
	StudentID int64  `json:"student_id"`
	CourseID  int64  `json:"course_id"`
	Note      string `json:"note"`
}
