package store

import (
	"errors"
	"io"
	"io/fs"
	"testing"

	apperrors "github.com/pavelanni/reportcard/internal/errors"
	"github.com/pavelanni/reportcard/internal/model"
	"github.com/pavelanni/reportcard/internal/report"
)

var _ report.Source = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedCourse creates a grade 7 student enrolled in one course with one
// assignment per term, each out of 20.
func seedCourse(t *testing.T, s *Store, courseName string) (studentID, courseID int64, assignmentIDs []int64) {
	t.Helper()
	studentID, err := s.CreateStudent(model.Student{FirstName: "Ann", LastName: "Lee", GradeLevel: 7})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	courseID, err = s.CreateCourse(model.Course{Name: courseName, GradeLevel: 7})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if err := s.Enroll(studentID, courseID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	for term := 1; term <= model.NumTerms; term++ {
		id, err := s.CreateAssignment(model.Assignment{
			CourseID: courseID, Title: "Quiz", MaxMarks: 20, Term: term,
		})
		if err != nil {
			t.Fatalf("CreateAssignment: %v", err)
		}
		assignmentIDs = append(assignmentIDs, id)
	}
	return studentID, courseID, assignmentIDs
}

func TestStudentCRUD(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetStudent(99)
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing student, got %+v", got)
	}

	id, err := s.CreateStudent(model.Student{FirstName: "Bo", LastName: "Ng", GradeLevel: 5})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	got, err = s.GetStudent(id)
	if err != nil || got == nil {
		t.Fatalf("GetStudent: %v, %v", got, err)
	}
	if got.FullName() != "Bo Ng" || got.GradeLevel != 5 {
		t.Errorf("unexpected student: %+v", got)
	}

	// Explicit IDs are kept.
	if id, err = s.CreateStudent(model.Student{ID: 42, FirstName: "Al", LastName: "Ba"}); err != nil || id != 42 {
		t.Errorf("CreateStudent with ID: id=%d err=%v", id, err)
	}

	if _, err := s.CreateStudent(model.Student{LastName: "Nofirst"}); err == nil {
		t.Error("expected validation error for missing first name")
	}

	all, err := s.ListStudents()
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	if len(all) != 2 || all[0].LastName != "Ba" {
		t.Errorf("expected [Ba Ng], got %+v", all)
	}
}

func TestCoursesAndAssignments(t *testing.T) {
	s := newTestStore(t)
	studentID, courseID, ids := seedCourse(t, s, "Mathematics")

	if _, err := s.CreateCourse(model.Course{Name: "Art", GradeLevel: 8}); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	courses, err := s.CoursesByGrade(7)
	if err != nil {
		t.Fatalf("CoursesByGrade: %v", err)
	}
	if len(courses) != 1 || courses[0].ID != courseID {
		t.Errorf("expected only Mathematics in grade 7, got %+v", courses)
	}

	assignments, err := s.AssignmentsByCourse(courseID)
	if err != nil {
		t.Fatalf("AssignmentsByCourse: %v", err)
	}
	if len(assignments) != 4 {
		t.Fatalf("expected 4 assignments, got %d", len(assignments))
	}
	for i, a := range assignments {
		if a.ID != ids[i] || a.Term != i+1 || a.DueDate != nil {
			t.Errorf("assignment %d: %+v", i, a)
		}
	}

	if _, err := s.CreateAssignment(model.Assignment{CourseID: courseID, Title: "Bad", Term: 5}); err == nil {
		t.Error("expected validation error for term 5")
	}

	// Enrolling twice is a no-op.
	if err := s.Enroll(studentID, courseID); err != nil {
		t.Fatalf("Enroll again: %v", err)
	}
	students, err := s.StudentsByCourse(courseID)
	if err != nil {
		t.Fatalf("StudentsByCourse: %v", err)
	}
	if len(students) != 1 || students[0].ID != studentID {
		t.Errorf("expected one enrolled student, got %+v", students)
	}
}

func TestMarks(t *testing.T) {
	s := newTestStore(t)
	studentID, courseID, ids := seedCourse(t, s, "Science")

	if err := s.SetMark(studentID, ids[0], 15); err != nil {
		t.Fatalf("SetMark: %v", err)
	}
	if err := s.SetMark(studentID, ids[0], 18); err != nil {
		t.Fatalf("SetMark update: %v", err)
	}
	if err := s.SetMark(studentID, ids[3], 20); err != nil {
		t.Fatalf("SetMark: %v", err)
	}

	tests := []struct {
		name         string
		assignmentID int64
		mark         int
	}{
		{"above max", ids[1], 21},
		{"negative", ids[1], -1},
		{"unknown assignment", 9999, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SetMark(studentID, tt.assignmentID, tt.mark)
			if !apperrors.IsCode(err, apperrors.CodeInvalidMark) {
				t.Errorf("expected INVALID_MARK, got %v", err)
			}
		})
	}

	marks, err := s.MarksByCourse(courseID)
	if err != nil {
		t.Fatalf("MarksByCourse: %v", err)
	}
	got := marks.For(studentID)
	if len(got) != 2 || got[ids[0]] != 18 || got[ids[3]] != 20 {
		t.Errorf("unexpected marks: %v", got)
	}

	if err := s.SetMarks(courseID, []MarkChange{{StudentID: studentID, AssignmentID: ids[3]}}); err != nil {
		t.Fatalf("SetMarks clear: %v", err)
	}
	marks, _ = s.MarksByCourse(courseID)
	if _, ok := marks.For(studentID)[ids[3]]; ok {
		t.Error("expected cleared mark to be absent")
	}

	// A course without marks yields an empty, non-nil map.
	otherCourse, _ := s.CreateCourse(model.Course{Name: "Music", GradeLevel: 7})
	empty, err := s.MarksByCourse(otherCourse)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("expected empty marks, got %v, %v", empty, err)
	}
}

func intPtr(v int) *int { return &v }

func TestSetMarks(t *testing.T) {
	s := newTestStore(t)
	studentID, courseID, ids := seedCourse(t, s, "Science")
	otherCourse, _ := s.CreateCourse(model.Course{Name: "Music", GradeLevel: 7})
	otherAssignment, _ := s.CreateAssignment(model.Assignment{CourseID: otherCourse, Title: "Song", MaxMarks: 10, Term: 1})
	outsider, _ := s.CreateStudent(model.Student{FirstName: "Bo", LastName: "Ng", GradeLevel: 7})

	if err := s.SetMark(studentID, ids[1], 12); err != nil {
		t.Fatalf("SetMark: %v", err)
	}
	if err := s.SetMarks(courseID, []MarkChange{
		{StudentID: studentID, AssignmentID: ids[0], Mark: intPtr(17)},
		{StudentID: studentID, AssignmentID: ids[1]},
	}); err != nil {
		t.Fatalf("SetMarks: %v", err)
	}
	marks, _ := s.MarksByCourse(courseID)
	if got := marks.For(studentID); len(got) != 1 || got[ids[0]] != 17 {
		t.Fatalf("unexpected marks after batch: %v", got)
	}

	tests := []struct {
		name string
		bad  MarkChange
	}{
		{"student not enrolled", MarkChange{StudentID: outsider, AssignmentID: ids[2], Mark: intPtr(5)}},
		{"unknown student", MarkChange{StudentID: 999, AssignmentID: ids[2], Mark: intPtr(5)}},
		{"assignment of another course", MarkChange{StudentID: studentID, AssignmentID: otherAssignment, Mark: intPtr(5)}},
		{"unknown assignment", MarkChange{StudentID: studentID, AssignmentID: 9999, Mark: intPtr(5)}},
		{"above max", MarkChange{StudentID: studentID, AssignmentID: ids[2], Mark: intPtr(21)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SetMarks(courseID, []MarkChange{
				{StudentID: studentID, AssignmentID: ids[0], Mark: intPtr(3)},
				{StudentID: studentID, AssignmentID: ids[3], Mark: intPtr(9)},
				tt.bad,
			})
			if !apperrors.IsCode(err, apperrors.CodeInvalidMark) {
				t.Fatalf("expected INVALID_MARK, got %v", err)
			}
			marks, err := s.MarksByCourse(courseID)
			if err != nil {
				t.Fatalf("MarksByCourse: %v", err)
			}
			if got := marks.For(studentID); len(got) != 1 || got[ids[0]] != 17 {
				t.Errorf("failed batch changed marks: %v", got)
			}
		})
	}
}

func TestFeedback(t *testing.T) {
	s := newTestStore(t)
	studentID, courseID, _ := seedCourse(t, s, "Art")

	if err := s.SetFeedback(studentID, courseID, "Bold colours."); err != nil {
		t.Fatalf("SetFeedback: %v", err)
	}
	if err := s.SetFeedback(studentID, courseID, "Bold colours.\nTry shading."); err != nil {
		t.Fatalf("SetFeedback update: %v", err)
	}
	fb, err := s.FeedbackByCourse(courseID)
	if err != nil {
		t.Fatalf("FeedbackByCourse: %v", err)
	}
	if fb[studentID] != "Bold colours.\nTry shading." {
		t.Errorf("unexpected feedback: %q", fb[studentID])
	}
}

func TestTemplates(t *testing.T) {
	s := newTestStore(t)

	_, err := s.OpenTemplate("report_card.docx")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}

	if err := s.PutTemplate("report_card.docx", []byte("v1")); err != nil {
		t.Fatalf("PutTemplate: %v", err)
	}
	if err := s.PutTemplate("report_card.docx", []byte("v2")); err != nil {
		t.Fatalf("PutTemplate replace: %v", err)
	}
	rc, err := s.OpenTemplate("report_card.docx")
	if err != nil {
		t.Fatalf("OpenTemplate: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "v2" {
		t.Errorf("expected v2, got %q", data)
	}

	names, err := s.ListTemplates()
	if err != nil || len(names) != 1 {
		t.Errorf("ListTemplates: %v, %v", names, err)
	}
}

func TestSchoolInfo(t *testing.T) {
	s := newTestStore(t)

	info, err := s.GetSchoolInfo()
	if err != nil {
		t.Fatalf("GetSchoolInfo: %v", err)
	}
	if info != (model.SchoolInfo{}) {
		t.Errorf("expected empty info, got %+v", info)
	}

	want := model.SchoolInfo{Name: "Hillside", Year: "2025-2026", Principal: "R. Okafor"}
	if err := s.SetSchoolInfo(want); err != nil {
		t.Fatalf("SetSchoolInfo: %v", err)
	}
	if info, _ = s.GetSchoolInfo(); info != want {
		t.Errorf("got %+v, want %+v", info, want)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash("/some/school.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/school.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	if err := s.SetImportedFileHash("/some/school.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/school.json")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func schoolFixture() model.SchoolImport {
	return model.SchoolImport{
		School:   &model.SchoolInfo{Name: "Hillside", Year: "2025-2026"},
		Students: []model.Student{{ID: 1, FirstName: "Ann", LastName: "Lee", GradeLevel: 7}},
		Courses:  []model.Course{{ID: 10, Name: "Mathematics", GradeLevel: 7}},
		Assignments: []model.Assignment{
			{ID: 100, CourseID: 10, Title: "Fractions", MaxMarks: 70, Term: 1},
			{ID: 101, CourseID: 10, Title: "Decimals", MaxMarks: 50, Term: 2},
		},
		Enrollments: []model.EnrollmentItem{{StudentID: 1, CourseID: 10}},
		Marks: []model.MarkItem{
			{StudentID: 1, AssignmentID: 100, Mark: 35},
			{StudentID: 1, AssignmentID: 101, Mark: 40},
		},
		Feedback: []model.FeedbackItem{{StudentID: 1, CourseID: 10, Note: "Works carefully."}},
	}
}

func TestImportSchool(t *testing.T) {
	s := newTestStore(t)

	sum, err := s.ImportSchool(schoolFixture())
	if err != nil {
		t.Fatalf("ImportSchool: %v", err)
	}
	want := model.ImportSummary{Students: 1, Courses: 1, Assignments: 2, Enrollments: 1, Marks: 2, Feedback: 1}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}

	// Re-importing updates in place.
	data := schoolFixture()
	data.Marks[0].Mark = 70
	if _, err := s.ImportSchool(data); err != nil {
		t.Fatalf("re-import: %v", err)
	}

	loader := report.NewLoader(s, nil)
	fields, err := loader.StudentMapping(1)
	if err != nil {
		t.Fatalf("StudentMapping: %v", err)
	}
	if fields["Mathematics_T1"] != "100.0" || fields["Mathematics_T2"] != "80.0" {
		t.Errorf("T1=%q T2=%q", fields["Mathematics_T1"], fields["Mathematics_T2"])
	}
	if fields["Mathematics_Feedback"] != "Works carefully." {
		t.Errorf("Mathematics_Feedback = %q", fields["Mathematics_Feedback"])
	}
	if info, _ := s.GetSchoolInfo(); info.Name != "Hillside" {
		t.Errorf("school name = %q", info.Name)
	}
}

func TestImportSchoolRejectsBadMark(t *testing.T) {
	s := newTestStore(t)

	data := schoolFixture()
	data.Marks = append(data.Marks, model.MarkItem{StudentID: 1, AssignmentID: 101, Mark: 51})
	_, err := s.ImportSchool(data)
	if !apperrors.IsCode(err, apperrors.CodeInvalidMark) {
		t.Fatalf("expected INVALID_MARK, got %v", err)
	}

	// Nothing from the failed import is kept.
	if st, _ := s.GetStudent(1); st != nil {
		t.Errorf("expected rollback, found student %+v", st)
	}
}
