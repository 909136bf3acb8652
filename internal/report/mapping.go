package report

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/pavelanni/reportcard/internal/errors"
	"github.com/pavelanni/reportcard/internal/grading"
	"github.com/pavelanni/reportcard/internal/model"
)

// Identity merge field names.
const (
	FieldFirstName  = "First_Name"
	FieldLastName   = "Last_Name"
	FieldFullName   = "Full_Name"
	FieldGradeLevel = "Grade_Level"
	FieldYear       = "Year"
	FieldDate       = "Date"
	FieldFeedback   = "Feedback"

	FieldSchoolName = "School_Name"
	FieldSchoolYear = "School_Year"
	FieldPrincipal  = "Principal"
)

// Labeler returns the display label of a subject in the aggregate feedback.
type Labeler func(Subject) string

// Builder assembles merge mappings for report cards.
type Builder struct {
	Subjects []Subject
	Now      func() time.Time
	Label    Labeler
	Extra    map[string]string // fixed fields such as the school name
}

// NewBuilder returns a Builder over DefaultSubjects using the wall clock.
func NewBuilder() *Builder {
	return &Builder{
		Subjects: DefaultSubjects,
		Now:      time.Now,
		Label:    func(s Subject) string { return s.Name },
	}
}

// BuildMergeMapping uses a default Builder.
func BuildMergeMapping(student model.Student, courses []model.Course,
	assignments map[int64][]model.Assignment, marks map[int64]model.CourseMarks,
	feedback map[int64]model.Feedback,
) map[string]string {
	return NewBuilder().BuildMergeMapping(student, courses, assignments, marks, feedback)
}

// BuildMergeMapping returns field name → value for one student's report card.
// Every subject gets its _T1.._T4, _Final, _Grade and _Feedback fields, empty
// when there is no data. Per-subject values are computed from the matched
// course alone; courses that match no subject are skipped.
func (b *Builder) BuildMergeMapping(student model.Student, courses []model.Course,
	assignments map[int64][]model.Assignment, marks map[int64]model.CourseMarks,
	feedback map[int64]model.Feedback,
) map[string]string {
	now := b.now()
	fields := make(map[string]string, len(b.Extra)+len(b.Subjects)*8+7)
	for k, v := range b.Extra {
		fields[k] = v
	}
	fields[FieldFirstName] = student.FirstName
	fields[FieldLastName] = student.LastName
	fields[FieldFullName] = student.FullName()
	fields[FieldGradeLevel] = strconv.Itoa(student.GradeLevel)
	fields[FieldYear] = strconv.Itoa(now.Year())
	fields[FieldDate] = now.Format("January 2, 2006")

	matched, unmatched := MatchSubjects(b.Subjects, courses)
	for _, c := range unmatched {
		slog.Debug("course skipped",
			"course_id", c.ID, "course", c.Name, "student_id", student.ID,
			"error", apperrors.WithMetadata(apperrors.CodeSubjectUnmatched,
				"no report subject matches course", map[string]string{"Course": c.Name}))
	}

	var notes []string
	for _, subj := range b.Subjects {
		for i := 1; i <= model.NumTerms; i++ {
			fields[subj.Key+"_T"+strconv.Itoa(i)] = ""
		}
		fields[subj.Key+"_Final"] = ""
		fields[subj.Key+"_Grade"] = ""
		fields[subj.Key+"_Feedback"] = ""

		c, ok := matched[subj.Key]
		if !ok {
			continue
		}

		terms := grading.TermPercentages(assignments[c.ID], marks[c.ID], student.ID)
		for i, t := range terms {
			fields[subj.Key+"_T"+strconv.Itoa(i+1)] = FormatPercent(t)
		}
		final := grading.FinalGrade(terms[0], terms[1], terms[2], terms[3])
		fields[subj.Key+"_Final"] = FormatPercent(final)
		if final != nil {
			fields[subj.Key+"_Grade"] = grading.LetterGrade(*final)
		}

		note := strings.TrimSpace(feedback[c.ID][student.ID])
		fields[subj.Key+"_Feedback"] = note
		if note != "" {
			notes = append(notes, b.label(subj)+": "+note)
		}
	}
	fields[FieldFeedback] = strings.Join(notes, "\n")

	return fields
}

// SchoolFields returns the Extra fields describing the school. Empty values
// are kept so the template fields are still cleared.
func SchoolFields(info model.SchoolInfo) map[string]string {
	return map[string]string{
		FieldSchoolName: info.Name,
		FieldSchoolYear: info.Year,
		FieldPrincipal:  info.Principal,
	}
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func (b *Builder) label(s Subject) string {
	if b.Label == nil {
		return s.Name
	}
	if l := b.Label(s); l != "" {
		return l
	}
	return s.Name
}

// FormatPercent renders a percentage with one decimal, or "" when undefined.
func FormatPercent(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 1, 64)
}
