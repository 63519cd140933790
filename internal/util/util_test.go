package util

import (
	"edu_platform_backend/internal/model"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 9}, Email: "kim@example.com", Role: model.Student}

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.UserID)
	assert.Equal(t, model.Student, claims.Role)
	assert.Equal(t, "kim@example.com", claims.Email)
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.Equal(t, "9", claims.Subject)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestParseJWTRejectsExpiredForeignAlgAndIssuer(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 1}, Role: model.Admin}

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{UserID: 1, Role: model.Admin})
	signed, err := hs512.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "secret")
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 1, Role: model.Admin, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	signed, err = foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		id   uint
		want bool
	}{
		{"1", 1, true},
		{"4294967295", 4294967295, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		id, ok := ParseID(tt.in)
		assert.Equal(t, tt.want, ok, tt.in)
		assert.Equal(t, tt.id, id, tt.in)
	}

	id, ok := ParseOptionalID("")
	assert.True(t, ok)
	assert.Zero(t, id)
	_, ok = ParseOptionalID("x")
	assert.False(t, ok)
}

func TestParsePagination(t *testing.T) {
	page, limit := ParsePagination("", "", DefaultPageSize)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, limit)

	page, limit = ParsePagination("3", "25", DefaultPageSize)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, limit)

	page, limit = ParsePagination("-1", "100000", DefaultPageSize)
	assert.Equal(t, 1, page)
	assert.Equal(t, MaxPageSize, limit)
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse([]int{1, 2}, 21, 2, 10)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNextPage)
	assert.True(t, resp.HasPrevPage)

	resp = NewPageResponse(nil, 0, 1, 10)
	assert.Zero(t, resp.TotalPages)
	assert.False(t, resp.HasNextPage)
	assert.False(t, resp.HasPrevPage)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFound(ErrProgressNotFound))
	assert.True(t, IsNotFound(errors.Join(errors.New("ctx"), ErrSubjectNotFound)))
	assert.False(t, IsNotFound(ErrAlreadyEnrolled))

	target, ok := NotFoundTarget(fmt.Errorf("update lesson: %w", ErrLessonNotFound))
	require.True(t, ok)
	assert.Same(t, ErrLessonNotFound, target)
	_, ok = NotFoundTarget(errors.New("timeout"))
	assert.False(t, ok)

	assert.True(t, IsValidationError(NewValidationError("bad")))
	assert.False(t, IsValidationError(ErrStudentNotFound))
}

func TestFromValidator(t *testing.T) {
	type payload struct {
		LessonID uint `validate:"required"`
		Status   int  `validate:"min=0,max=100"`
	}
	v := validator.New()

	err := FromValidator(v.Struct(payload{Status: 5}))
	assert.EqualError(t, err, "lessonID is required")

	err = FromValidator(v.Struct(payload{LessonID: 1, Status: 101}))
	assert.EqualError(t, err, "status must be less than or equal to 100")

	err = FromValidator(errors.New("plain"))
	assert.True(t, IsValidationError(err))
	assert.EqualError(t, err, "plain")
}
