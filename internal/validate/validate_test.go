package validate

import (
	"testing"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Rating   int    `json:"rating" validate:"min=1,max=5"`
	ExamType string `form:"examType" validate:"required"`
}

func valid() signup {
	return signup{Name: "Jane", Email: "jane@x.com", Password: "secret1", Rating: 3, ExamType: "Final"}
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*signup)
		field   string
		message string
	}{
		{"blank name", func(s *signup) { s.Name = "   " }, "name", "Name is required"},
		{"bad email", func(s *signup) { s.Email = "jane-at-x" }, "email", "Email must be a valid email address"},
		{"short password", func(s *signup) { s.Password = "123" }, "password", "Password must be at least 6 characters"},
		{"rating too high", func(s *signup) { s.Rating = 6 }, "rating", "Rating must be at most 5"},
		{"form tag name", func(s *signup) { s.ExamType = "" }, "examType", "Exam type is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)

			err := Struct(s)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Message)
		})
	}

	assert.NoError(t, Struct(valid()))
}

func TestField(t *testing.T) {
	err := Field("status", "paused", "oneof=active blocked")

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
	assert.Equal(t, "Status must be one of: active, blocked", verr.Message)

	assert.NoError(t, Field("status", "blocked", "oneof=active blocked"))
}
