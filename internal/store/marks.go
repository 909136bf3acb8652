package store

import (
	"database/sql"
	"fmt"
	"strconv"

	apperrors "github.com/pavelanni/reportcard/internal/errors"
	"github.com/pavelanni/reportcard/internal/model"
)

// SetMark records a student's raw mark for an assignment, replacing any
// earlier mark. Marks outside the assignment's bounds fail with INVALID_MARK.
func (s *Store) SetMark(studentID, assignmentID int64, mark int) error {
	a, err := s.GetAssignment(assignmentID)
	if err != nil {
		return fmt.Errorf("get assignment %d: %w", assignmentID, err)
	}
	if a == nil {
		return apperrors.WithMetadata(apperrors.CodeInvalidMark,
			fmt.Sprintf("assignment %d does not exist", assignmentID),
			map[string]string{"Assignment": fmt.Sprint(assignmentID)})
	}
	if err := model.CheckMark(mark, *a); err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO marks (student_id, assignment_id, mark) VALUES (?, ?, ?)
		 ON CONFLICT(student_id, assignment_id) DO UPDATE SET mark = excluded.mark`,
		studentID, assignmentID, mark,
	)
	return err
}

// MarkChange is one entry of a mark batch. A nil Mark clears the mark.
type MarkChange struct {
	StudentID    int64
	AssignmentID int64
	Mark         *int
}

// SetMarks applies a batch of mark changes for one course in a single
// transaction. Each student must be enrolled in the course and each
// assignment must belong to it; any failure leaves every mark as it was.
func (s *Store) SetMarks(courseID int64, changes []MarkChange) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range changes {
		value := ""
		if c.Mark != nil {
			value = strconv.Itoa(*c.Mark)
		}
		var a model.Assignment
		err := tx.QueryRow(
			`SELECT id, course_id, title, max_marks, term FROM assignments WHERE id = ? AND course_id = ?`,
			c.AssignmentID, courseID,
		).Scan(&a.ID, &a.CourseID, &a.Title, &a.MaxMarks, &a.Term)
		if err == sql.ErrNoRows {
			return apperrors.WithMetadata(apperrors.CodeInvalidMark,
				fmt.Sprintf("assignment %d is not part of course %d", c.AssignmentID, courseID),
				map[string]string{"Assignment": fmt.Sprint(c.AssignmentID), "Value": value, "Max": "0"})
		}
		if err != nil {
			return fmt.Errorf("get assignment %d: %w", c.AssignmentID, err)
		}

		var enrolled int
		err = tx.QueryRow(
			`SELECT 1 FROM enrollments WHERE student_id = ? AND course_id = ?`, c.StudentID, courseID,
		).Scan(&enrolled)
		if err == sql.ErrNoRows {
			return apperrors.WithMetadata(apperrors.CodeInvalidMark,
				fmt.Sprintf("student %d is not enrolled in course %d", c.StudentID, courseID),
				map[string]string{"Student": fmt.Sprint(c.StudentID), "Value": value, "Max": strconv.Itoa(a.MaxMarks)})
		}
		if err != nil {
			return fmt.Errorf("check enrollment of student %d: %w", c.StudentID, err)
		}

		if c.Mark == nil {
			if _, err := tx.Exec(
				`DELETE FROM marks WHERE student_id = ? AND assignment_id = ?`, c.StudentID, c.AssignmentID,
			); err != nil {
				return fmt.Errorf("clear mark: %w", err)
			}
			continue
		}
		if err := model.CheckMark(*c.Mark, a); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO marks (student_id, assignment_id, mark) VALUES (?, ?, ?)
			 ON CONFLICT(student_id, assignment_id) DO UPDATE SET mark = excluded.mark`,
			c.StudentID, c.AssignmentID, *c.Mark,
		); err != nil {
			return fmt.Errorf("set mark: %w", err)
		}
	}
	return tx.Commit()
}

// MarksByCourse returns every recorded mark of a course keyed by student.
func (s *Store) MarksByCourse(courseID int64) (model.CourseMarks, error) {
	rows, err := s.db.Query(
		`SELECT m.student_id, m.assignment_id, m.mark
		 FROM marks m JOIN assignments a ON a.id = m.assignment_id
		 WHERE a.course_id = ?`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marks := make(model.CourseMarks)
	for rows.Next() {
		var studentID, assignmentID int64
		var mark int
		if err := rows.Scan(&studentID, &assignmentID, &mark); err != nil {
			return nil, err
		}
		if marks[studentID] == nil {
			marks[studentID] = make(model.StudentMarks)
		}
		marks[studentID][assignmentID] = mark
	}
	return marks, rows.Err()
}

// SetFeedback stores a teacher's note for a student in a course.
func (s *Store) SetFeedback(studentID, courseID int64, note string) error {
	_, err := s.db.Exec(
		`INSERT INTO feedback (student_id, course_id, note) VALUES (?, ?, ?)
		 ON CONFLICT(student_id, course_id) DO UPDATE SET note = excluded.note`,
		studentID, courseID, note,
	)
	return err
}

// FeedbackByCourse returns the notes of a course keyed by student.
func (s *Store) FeedbackByCourse(courseID int64) (model.Feedback, error) {
	rows, err := s.db.Query(`SELECT student_id, note FROM feedback WHERE course_id = ?`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fb := make(model.Feedback)
	for rows.Next() {
		var studentID int64
		var note string
		if err := rows.Scan(&studentID, &note); err != nil {
			return nil, err
		}
		fb[studentID] = note
	}
	return fb, rows.Err()
}
