package grading

import (
	"testing"

	"github.com/pavelanni/reportcard/internal/model"
)

func TestMergedTermReport(t *testing.T) {
	students := []model.Student{
		{ID: 1, FirstName: "Ann", LastName: "Lee", GradeLevel: 7},
		{ID: 2, FirstName: "Bo", LastName: "Kim", GradeLevel: 7},
		{ID: 3, FirstName: "Cy", LastName: "Ng", GradeLevel: 7},
	}
	courses := []model.Course{
		{ID: 100, Name: "Mathematics 7", GradeLevel: 7},
		{ID: 200, Name: "English 7", GradeLevel: 7},
	}
	assignments := map[int64][]model.Assignment{
		100: {
			{ID: 1, CourseID: 100, Title: "Algebra quiz", MaxMarks: 10, Term: 1},
			{ID: 2, CourseID: 100, Title: "Geometry test", MaxMarks: 50, Term: 4},
		},
		200: {
			{ID: 3, CourseID: 200, Title: "Essay", MaxMarks: 20, Term: 1},
		},
	}
	marks := map[int64]model.CourseMarks{
		100: {1: {1: 8, 2: 40}, 2: {1: 5}},
		200: {1: {3: 12}},
	}

	reports := MergedTermReport(students, courses, assignments, marks)
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}

	// Ann: term 1 pools 80% (maths) and 60% (english); term 4 is 80%.
	ann := reports[0]
	assertPct(t, "Ann T1", ann.Terms[0], pct(70))
	assertPct(t, "Ann T2", ann.Terms[1], nil)
	assertPct(t, "Ann T4", ann.Terms[3], pct(80))
	// (70*0.125 + 80*0.5) / 0.625 = 78
	assertPct(t, "Ann final", ann.Final, pct(78))
	if ann.Letter != "B" {
		t.Errorf("Ann letter = %q, want B", ann.Letter)
	}

	bo := reports[1]
	assertPct(t, "Bo T1", bo.Terms[0], pct(50))
	assertPct(t, "Bo final", bo.Final, pct(50))
	if bo.Letter != "D" {
		t.Errorf("Bo letter = %q, want D", bo.Letter)
	}

	cy := reports[2]
	if cy.Final != nil || cy.Letter != "" {
		t.Errorf("Cy has no marks; got final=%v letter=%q", cy.Final, cy.Letter)
	}
}

func TestPoolingDoesNotDoubleCount(t *testing.T) {
	shared := model.Assignment{ID: 9, Title: "Shared project", MaxMarks: 100, Term: 2}
	courses := []model.Course{{ID: 1, Name: "Science"}, {ID: 2, Name: "Science Lab"}}
	assignments := map[int64][]model.Assignment{
		1: {shared, {ID: 10, Title: "Lab report", MaxMarks: 10, Term: 2}},
		2: {shared},
	}
	marks := map[int64]model.CourseMarks{
		1: {5: {9: 40, 10: 10}},
		2: {5: {9: 40}},
	}

	pooled := PoolAssignments(courses, assignments)
	if len(pooled) != 2 {
		t.Fatalf("expected 2 pooled assignments, got %d", len(pooled))
	}
	pm := PoolMarks(courses, marks)
	if len(pm[5]) != 2 {
		t.Fatalf("expected 2 pooled marks, got %d", len(pm[5]))
	}

	reports := MergedTermReport([]model.Student{{ID: 5, FirstName: "Dee"}}, courses, assignments, marks)
	// (40 + 100) / 2, the shared assignment counted once.
	assertPct(t, "T2", reports[0].Terms[1], pct(70))
}

func TestPoolMarksDisjointCourses(t *testing.T) {
	courses := []model.Course{{ID: 1}, {ID: 2}}
	marks := map[int64]model.CourseMarks{
		1: {7: {100: 3}},
		2: {7: {200: 4}, 8: {201: 1}},
	}
	pm := PoolMarks(courses, marks)
	if pm[7][100] != 3 || pm[7][200] != 4 || pm[8][201] != 1 {
		t.Errorf("unexpected pooled marks: %v", pm)
	}
	if len(pm[7]) != 2 {
		t.Errorf("student 7 should have 2 marks, got %d", len(pm[7]))
	}
}
