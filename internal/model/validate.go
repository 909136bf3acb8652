package model

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/pavelanni/reportcard/internal/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags on a Student, Course or Assignment.
func Validate(v any) error {
	if err := validatorInstance().Struct(v); err != nil {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	return nil
}

// ParseMark converts a raw mark entered by a user into an integer score for
// the given assignment. Non-numeric input and scores outside [0, MaxMarks]
// fail with INVALID_MARK. When MaxMarks is not set only the lower bound applies.
func ParseMark(raw string, a Assignment) (int, error) {
	raw = strings.TrimSpace(raw)
	mark, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidMark,
			fmt.Sprintf("mark %q is not a whole number", raw),
			map[string]string{"Value": raw, "Max": strconv.Itoa(a.MaxMarks)})
	}
	if err := CheckMark(mark, a); err != nil {
		return 0, err
	}
	return mark, nil
}

// CheckMark verifies that mark lies within the assignment's bounds.
func CheckMark(mark int, a Assignment) error {
	tag := "gte=0"
	if a.MaxMarks > 0 {
		tag = fmt.Sprintf("gte=0,lte=%d", a.MaxMarks)
	}
	if err := validatorInstance().Var(mark, tag); err != nil {
		return apperrors.WithMetadata(apperrors.CodeInvalidMark,
			fmt.Sprintf("mark %d out of range for assignment %d", mark, a.ID),
			map[string]string{"Value": strconv.Itoa(mark), "Max": strconv.Itoa(a.MaxMarks)})
	}
	return nil
}
