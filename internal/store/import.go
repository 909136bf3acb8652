package store

import (
	"database/sql"
	"fmt"

	apperrors "github.com/pavelanni/reportcard/internal/errors"
	"github.com/pavelanni/reportcard/internal/model"
)

// ImportSchool writes a school data file in one transaction. Records keep
// the IDs given in the file; existing rows with the same ID are updated.
// Every mark is checked against its assignment, and a single bad mark
// rolls back the whole import.
func (s *Store) ImportSchool(data model.SchoolImport) (model.ImportSummary, error) {
	var sum model.ImportSummary

	tx, err := s.db.Begin()
	if err != nil {
		return sum, err
	}
	defer tx.Rollback()

	for _, st := range data.Students {
		if err := model.Validate(st); err != nil {
			return sum, err
		}
		if _, err := tx.Exec(
			`INSERT INTO students (id, first_name, last_name, grade_level) VALUES (NULLIF(?, 0), ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET first_name = excluded.first_name,
			 last_name = excluded.last_name, grade_level = excluded.grade_level`,
			st.ID, st.FirstName, st.LastName, st.GradeLevel,
		); err != nil {
			return sum, fmt.Errorf("student %q: %w", st.FullName(), err)
		}
		sum.Students++
	}

	for _, c := range data.Courses {
		if err := model.Validate(c); err != nil {
			return sum, err
		}
		if _, err := tx.Exec(
			`INSERT INTO courses (id, name, grade_level) VALUES (NULLIF(?, 0), ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, grade_level = excluded.grade_level`,
			c.ID, c.Name, c.GradeLevel,
		); err != nil {
			return sum, fmt.Errorf("course %q: %w", c.Name, err)
		}
		sum.Courses++
	}

	for _, a := range data.Assignments {
		if err := model.Validate(a); err != nil {
			return sum, err
		}
		if _, err := tx.Exec(
			`INSERT INTO assignments (id, course_id, title, max_marks, term, due_date)
			 VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET course_id = excluded.course_id, title = excluded.title,
			 max_marks = excluded.max_marks, term = excluded.term, due_date = excluded.due_date`,
			a.ID, a.CourseID, a.Title, a.MaxMarks, a.Term, a.DueDate,
		); err != nil {
			return sum, fmt.Errorf("assignment %q: %w", a.Title, err)
		}
		sum.Assignments++
	}

	for _, e := range data.Enrollments {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO enrollments (student_id, course_id) VALUES (?, ?)`,
			e.StudentID, e.CourseID,
		); err != nil {
			return sum, fmt.Errorf("enroll student %d in course %d: %w", e.StudentID, e.CourseID, err)
		}
		sum.Enrollments++
	}

	for _, m := range data.Marks {
		var a model.Assignment
		err := tx.QueryRow(
			`SELECT id, course_id, title, max_marks, term FROM assignments WHERE id = ?`, m.AssignmentID,
		).Scan(&a.ID, &a.CourseID, &a.Title, &a.MaxMarks, &a.Term)
		if err == sql.ErrNoRows {
			return sum, apperrors.WithMetadata(apperrors.CodeInvalidMark,
				fmt.Sprintf("assignment %d does not exist", m.AssignmentID),
				map[string]string{"Assignment": fmt.Sprint(m.AssignmentID)})
		}
		if err != nil {
			return sum, err
		}
		if err := model.CheckMark(m.Mark, a); err != nil {
			return sum, err
		}
		if _, err := tx.Exec(
			`INSERT INTO marks (student_id, assignment_id, mark) VALUES (?, ?, ?)
			 ON CONFLICT(student_id, assignment_id) DO UPDATE SET mark = excluded.mark`,
			m.StudentID, m.AssignmentID, m.Mark,
		); err != nil {
			return sum, fmt.Errorf("mark for student %d: %w", m.StudentID, err)
		}
		sum.Marks++
	}

	for _, f := range data.Feedback {
		if _, err := tx.Exec(
			`INSERT INTO feedback (student_id, course_id, note) VALUES (?, ?, ?)
			 ON CONFLICT(student_id, course_id) DO UPDATE SET note = excluded.note`,
			f.StudentID, f.CourseID, f.Note,
		); err != nil {
			return sum, fmt.Errorf("feedback for student %d: %w", f.StudentID, err)
		}
		sum.Feedback++
	}

	if data.School != nil {
		pairs := []struct{ k, v string }{
			{"school_name", data.School.Name},
			{"school_year", data.School.Year},
			{"principal", data.School.Principal},
		}
		for _, p := range pairs {
			if _, err := tx.Exec(
				`INSERT INTO metadata (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, p.k, p.v,
			); err != nil {
				return sum, err
			}
		}
	}

	return sum, tx.Commit()
}
