package report

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pavelanni/reportcard/internal/grading"
	"github.com/pavelanni/reportcard/internal/model"
)

// ErrStudentNotFound is returned when a report is requested for an unknown student.
var ErrStudentNotFound = errors.New("student not found")

// AssignmentFinder reads the assignments of a course.
type AssignmentFinder interface {
	AssignmentsByCourse(courseID int64) ([]model.Assignment, error)
}

// CourseFinder reads the courses of a grade level.
type CourseFinder interface {
	CoursesByGrade(gradeLevel int) ([]model.Course, error)
}

// StudentFinder reads students.
type StudentFinder interface {
	StudentsByCourse(courseID int64) ([]model.Student, error)
	GetStudent(id int64) (*model.Student, error)
}

// MarkFinder reads raw marks of a course.
type MarkFinder interface {
	MarksByCourse(courseID int64) (model.CourseMarks, error)
}

// FeedbackFinder reads teacher notes of a course.
type FeedbackFinder interface {
	FeedbackByCourse(courseID int64) (model.Feedback, error)
}

// Source is everything the loader needs from the records store.
type Source interface {
	AssignmentFinder
	CourseFinder
	StudentFinder
	MarkFinder
	FeedbackFinder
}

// Loader fetches records through a Source and hands them to the pure
// aggregation and mapping functions.
type Loader struct {
	src     Source
	builder *Builder
}

// NewLoader creates a Loader. A nil builder means NewBuilder().
func NewLoader(src Source, b *Builder) *Loader {
	if b == nil {
		b = NewBuilder()
	}
	return &Loader{src: src, builder: b}
}

type courseData struct {
	courses     []model.Course
	assignments map[int64][]model.Assignment
	marks       map[int64]model.CourseMarks
	feedback    map[int64]model.Feedback
}

func (l *Loader) loadGrade(gradeLevel int, withFeedback bool) (*courseData, error) {
	courses, err := l.src.CoursesByGrade(gradeLevel)
	if err != nil {
		return nil, fmt.Errorf("courses for grade %d: %w", gradeLevel, err)
	}
	d := &courseData{
		courses:     courses,
		assignments: make(map[int64][]model.Assignment, len(courses)),
		marks:       make(map[int64]model.CourseMarks, len(courses)),
		feedback:    make(map[int64]model.Feedback, len(courses)),
	}
	for _, c := range courses {
		if d.assignments[c.ID], err = l.src.AssignmentsByCourse(c.ID); err != nil {
			return nil, fmt.Errorf("assignments for course %d: %w", c.ID, err)
		}
		if d.marks[c.ID], err = l.src.MarksByCourse(c.ID); err != nil {
			return nil, fmt.Errorf("marks for course %d: %w", c.ID, err)
		}
		if !withFeedback {
			continue
		}
		if d.feedback[c.ID], err = l.src.FeedbackByCourse(c.ID); err != nil {
			return nil, fmt.Errorf("feedback for course %d: %w", c.ID, err)
		}
	}
	return d, nil
}

// StudentMapping builds the merge mapping for one student from the courses
// of the student's grade level.
func (l *Loader) StudentMapping(studentID int64) (map[string]string, error) {
	student, err := l.src.GetStudent(studentID)
	if err != nil {
		return nil, fmt.Errorf("get student %d: %w", studentID, err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %d: %w", studentID, ErrStudentNotFound)
	}
	d, err := l.loadGrade(student.GradeLevel, true)
	if err != nil {
		return nil, err
	}
	return l.builder.BuildMergeMapping(*student, d.courses, d.assignments, d.marks, d.feedback), nil
}

// GradeReport computes the pooled final grades of every student enrolled in
// a course of the grade level. Students are ordered by last then first name.
func (l *Loader) GradeReport(gradeLevel int) ([]grading.StudentTermReport, []model.Course, error) {
	d, err := l.loadGrade(gradeLevel, false)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[int64]bool)
	var students []model.Student
	for _, c := range d.courses {
		enrolled, err := l.src.StudentsByCourse(c.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("students for course %d: %w", c.ID, err)
		}
		for _, s := range enrolled {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			students = append(students, s)
		}
	}
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})

	return grading.MergedTermReport(students, d.courses, d.assignments, d.marks), d.courses, nil
}

// Export converts a grade report into its JSON export form.
func Export(gradeLevel int, year string, reports []grading.StudentTermReport, courses []model.Course) model.GradeExport {
	exp := model.GradeExport{GradeLevel: gradeLevel, Year: year}
	for _, c := range courses {
		exp.Courses = append(exp.Courses, c.Name)
	}
	for _, r := range reports {
		exp.Results = append(exp.Results, model.StudentResult{
			StudentID:   r.Student.ID,
			DisplayName: r.Student.FullName(),
			Terms:       r.Terms[:],
			Final:       r.Final,
			Letter:      r.Letter,
		})
	}
	return exp
}
