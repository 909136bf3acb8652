package grading

import "github.com/pavelanni/reportcard/internal/model"

// StudentTermReport holds one student's pooled results across a grade level.
type StudentTermReport struct {
	Student model.Student
	Terms   [model.NumTerms]*float64
	Final   *float64
	Letter  string // empty when Final is nil
}

// PoolAssignments unions assignments from several courses keyed by ID.
// The first occurrence of an ID wins and input order is preserved.
func PoolAssignments(courses []model.Course, byCourse map[int64][]model.Assignment) []model.Assignment {
	seen := make(map[int64]bool)
	var pooled []model.Assignment
	for _, c := range courses {
		for _, a := range byCourse[c.ID] {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			pooled = append(pooled, a)
		}
	}
	return pooled
}

// PoolMarks unions marks from several courses keyed by (student, assignment).
func PoolMarks(courses []model.Course, byCourse map[int64]model.CourseMarks) model.CourseMarks {
	pooled := make(model.CourseMarks)
	for _, c := range courses {
		for studentID, sm := range byCourse[c.ID] {
			dst, ok := pooled[studentID]
			if !ok {
				dst = make(model.StudentMarks, len(sm))
				pooled[studentID] = dst
			}
			for assignmentID, raw := range sm {
				if _, dup := dst[assignmentID]; dup {
					continue
				}
				dst[assignmentID] = raw
			}
		}
	}
	return pooled
}

// MergedTermReport pools the assignments and marks of every course and
// computes term percentages, final grade and letter for each student.
func MergedTermReport(students []model.Student, courses []model.Course,
	assignmentsByCourse map[int64][]model.Assignment, marksByCourse map[int64]model.CourseMarks,
) []StudentTermReport {
	assignments := PoolAssignments(courses, assignmentsByCourse)
	marks := PoolMarks(courses, marksByCourse)

	reports := make([]StudentTermReport, 0, len(students))
	for _, s := range students {
		r := StudentTermReport{
			Student: s,
			Terms:   TermPercentages(assignments, marks, s.ID),
		}
		r.Final = finalGrade(r.Terms)
		if r.Final != nil {
			r.Letter = LetterGrade(*r.Final)
		}
		reports = append(reports, r)
	}
	return reports
}
