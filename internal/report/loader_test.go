package report

import (
	"errors"
	"testing"

	"github.com/pavelanni/reportcard/internal/model"
)

type fakeSource struct {
	students    map[int64]model.Student
	courses     []model.Course
	enrolled    map[int64][]int64
	assignments map[int64][]model.Assignment
	marks       map[int64]model.CourseMarks
	feedback    map[int64]model.Feedback
}

func (f *fakeSource) AssignmentsByCourse(id int64) ([]model.Assignment, error) {
	return f.assignments[id], nil
}

func (f *fakeSource) CoursesByGrade(level int) ([]model.Course, error) {
	var out []model.Course
	for _, c := range f.courses {
		if c.GradeLevel == level {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeSource) StudentsByCourse(id int64) ([]model.Student, error) {
	var out []model.Student
	for _, sid := range f.enrolled[id] {
		out = append(out, f.students[sid])
	}
	return out, nil
}

func (f *fakeSource) GetStudent(id int64) (*model.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSource) MarksByCourse(id int64) (model.CourseMarks, error) {
	return f.marks[id], nil
}

func (f *fakeSource) FeedbackByCourse(id int64) (model.Feedback, error) {
	return f.feedback[id], nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		students: map[int64]model.Student{
			1: {ID: 1, FirstName: "Ann", LastName: "Young", GradeLevel: 8},
			2: {ID: 2, FirstName: "Bo", LastName: "Adams", GradeLevel: 8},
		},
		courses: []model.Course{
			{ID: 10, Name: "Music", GradeLevel: 8},
			{ID: 20, Name: "Art", GradeLevel: 8},
			{ID: 30, Name: "Art", GradeLevel: 9},
		},
		enrolled: map[int64][]int64{10: {1, 2}, 20: {1}},
		assignments: map[int64][]model.Assignment{
			10: {{ID: 1, CourseID: 10, Title: "Recital", MaxMarks: 20, Term: 1}},
			20: {{ID: 2, CourseID: 20, Title: "Portrait", MaxMarks: 10, Term: 1}},
		},
		marks: map[int64]model.CourseMarks{
			10: {1: {1: 20}, 2: {1: 10}},
			20: {1: {2: 5}},
		},
		feedback: map[int64]model.Feedback{20: {1: "Bold colours."}},
	}
}

func TestLoaderStudentMapping(t *testing.T) {
	l := NewLoader(newFakeSource(), fixedBuilder())

	fields, err := l.StudentMapping(1)
	if err != nil {
		t.Fatalf("StudentMapping: %v", err)
	}
	if fields["Music_T1"] != "100.0" {
		t.Errorf("Music_T1 = %q, want 100.0", fields["Music_T1"])
	}
	if fields["Art_T1"] != "50.0" {
		t.Errorf("Art_T1 = %q, want 50.0", fields["Art_T1"])
	}
	if fields["Feedback"] != "Art: Bold colours." {
		t.Errorf("Feedback = %q", fields["Feedback"])
	}

	_, err = l.StudentMapping(99)
	if !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestLoaderGradeReport(t *testing.T) {
	l := NewLoader(newFakeSource(), nil)

	reports, courses, err := l.GradeReport(8)
	if err != nil {
		t.Fatalf("GradeReport: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(courses))
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 students, got %d", len(reports))
	}
	// Sorted by last name: Adams before Young.
	if reports[0].Student.ID != 2 {
		t.Errorf("first student = %d, want 2", reports[0].Student.ID)
	}
	// Ann pools 100% and 50% in term 1.
	ann := reports[1]
	if ann.Terms[0] == nil || *ann.Terms[0] != 75 {
		t.Errorf("Ann T1 = %v, want 75", ann.Terms[0])
	}
	if ann.Letter != "B" {
		t.Errorf("Ann letter = %q, want B", ann.Letter)
	}

	exp := Export(8, "2026", reports, courses)
	if len(exp.Results) != 2 || exp.Results[1].DisplayName != "Ann Young" {
		t.Errorf("unexpected export: %+v", exp)
	}
	if len(exp.Results[1].Terms) != model.NumTerms {
		t.Errorf("expected %d terms in export, got %d", model.NumTerms, len(exp.Results[1].Terms))
	}
}
