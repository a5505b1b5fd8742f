package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required,max=5"`
	CheckInTime string `json:"check_in_time" validate:"omitempty,clock"`
	Score       int    `json:"iq_score" validate:"min=0,max=100"`
}

func TestFieldErrorsKeyedByJSONName(t *testing.T) {
	v := New()
	err := v.Struct(samplePayload{Email: "nope", Name: "toolong", CheckInTime: "25:00", Score: 101})
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, []string{"email must be a valid email address"}, fields["email"])
	assert.Equal(t, []string{"name may not be greater than 5 characters"}, fields["name"])
	assert.Equal(t, []string{"check_in_time must use the HH:MM or HH:MM:SS format"}, fields["check_in_time"])
	assert.Equal(t, []string{"iq_score may not be greater than 100"}, fields["iq_score"])
}

func TestFieldErrorsIgnoresForeignErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
	assert.NoError(t, New().Struct(samplePayload{Email: "a@b.co", Name: "ok", CheckInTime: "08:30", Score: 60}))
}

func TestIsClock(t *testing.T) {
	assert.True(t, IsClock("08:00"))
	assert.True(t, IsClock("23:59:59"))
	assert.False(t, IsClock("8:00"))
	assert.False(t, IsClock("24:00"))
}
