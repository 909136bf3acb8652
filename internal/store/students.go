package store

import (
	"database/sql"
	"log/slog"

	"github.com/pavelanni/reportcard/internal/model"
)

// CreateStudent inserts a student. A zero ID lets the database assign one.
func (s *Store) CreateStudent(st model.Student) (int64, error) {
	if err := model.Validate(st); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO students (id, first_name, last_name, grade_level) VALUES (NULLIF(?, 0), ?, ?, ?)`,
		st.ID, st.FirstName, st.LastName, st.GradeLevel,
	)
	if err != nil {
		slog.Error("failed to create student", "name", st.FullName(), "error", err)
		return 0, err
	}
	return res.LastInsertId()
}

// GetStudent returns a student by ID, or nil if not found.
func (s *Store) GetStudent(id int64) (*model.Student, error) {
	var st model.Student
	err := s.db.QueryRow(
		`SELECT id, first_name, last_name, grade_level FROM students WHERE id = ?`, id,
	).Scan(&st.ID, &st.FirstName, &st.LastName, &st.GradeLevel)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStudents returns all students ordered by name.
func (s *Store) ListStudents() ([]model.Student, error) {
	rows, err := s.db.Query(
		`SELECT id, first_name, last_name, grade_level FROM students ORDER BY last_name, first_name, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudents(rows)
}

// Enroll places a student in a course. Enrolling twice is a no-op.
func (s *Store) Enroll(studentID, courseID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO enrollments (student_id, course_id) VALUES (?, ?)`, studentID, courseID,
	)
	return err
}

// StudentsByCourse returns the students enrolled in a course.
func (s *Store) StudentsByCourse(courseID int64) ([]model.Student, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.first_name, s.last_name, s.grade_level
		 FROM students s JOIN enrollments e ON e.student_id = s.id
		 WHERE e.course_id = ? ORDER BY s.last_name, s.first_name, s.id`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudents(rows)
}

func scanStudents(rows *sql.Rows) ([]model.Student, error) {
	var students []model.Student
	for rows.Next() {
		var st model.Student
		if err := rows.Scan(&st.ID, &st.FirstName, &st.LastName, &st.GradeLevel); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}
