package app

import (
	"bytes"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/testutil"
	"edu_platform_backend/internal/util"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWT:       config.JWTConfig{Secret: "router-test-secret", ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir(), UploadExpiry: 300, DownloadExpiry: 300},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
		Progress:  config.ProgressConfig{MaxUpdateRetries: 5},
	}
	db := testutil.DB(t)
	a := &App{Config: cfg, DB: db}
	return &testServer{t: t, db: db, router: a.newRouter(db, nil)}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) login(user *model.User) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/login", "", gin.H{"email": user.Email, "password": testutil.TestPassword})
	require.Equal(s.t, http.StatusOK, code, env.Message)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	var data struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data.Status)
	assert.Equal(t, "up", data.Components["database"])
	assert.Equal(t, "disabled", data.Components["redis"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	user := testutil.SeedStudent(t, s.db)

	code, env := s.do(http.MethodPost, "/api/login", "", gin.H{"email": user.Email, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid email or password", env.Message)

	code, _ = s.do(http.MethodPost, "/api/login", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestEnrollmentProgressFlow(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.SeedUser(t, s.db, model.Admin)
	student := testutil.SeedStudent(t, s.db)
	course := testutil.SeedCourse(t, s.db, [][]int{{2}})
	subject := course.Subjects[0]
	chapter := course.Chapters[subject.ID][0]
	lesson := course.Lessons[chapter.ID][0]

	adminToken := s.login(admin)
	studentToken := s.login(student)

	code, _ := s.do(http.MethodPost, "/api/enrollments", "", gin.H{"studentId": student.ID, "subcategoryId": course.SubCategory.ID})
	assert.Equal(t, http.StatusUnauthorized, code)

	// 报名同时生成进度结构
	code, env := s.do(http.MethodPost, "/api/enrollments", studentToken, gin.H{"studentId": student.ID, "subcategoryId": course.SubCategory.ID})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "Enrollment created successfully", env.Message)

	var enrollment model.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &enrollment))
	require.NotNil(t, enrollment.Progress)
	assert.Len(t, enrollment.Progress.Lessons(), 1)
	assert.Zero(t, enrollment.Progress.CompletionPercentage)

	code, env = s.do(http.MethodPost, "/api/enrollments", studentToken, gin.H{"studentId": student.ID, "subcategoryId": course.SubCategory.ID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, util.ErrAlreadyEnrolled.Error(), env.Message)

	lessonPath := fmt.Sprintf("/api/progress/lesson/%d", enrollment.ID)
	code, env = s.do(http.MethodPut, lessonPath, studentToken, gin.H{
		"subjectId": subject.ID, "chapterId": chapter.ID, "lessonId": lesson.ID, "status": 100,
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var progress model.Progress
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.InDelta(t, 50, progress.CompletionPercentage, 1e-9)
	assert.NotNil(t, progress.LastAccessedAt)

	code, _ = s.do(http.MethodPut, lessonPath, studentToken, gin.H{
		"subjectId": subject.ID, "chapterId": chapter.ID, "lessonId": lesson.ID, "status": 150,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = s.do(http.MethodPut, lessonPath, studentToken, gin.H{
		"subjectId": subject.ID, "chapterId": 99999, "lessonId": lesson.ID, "status": 10,
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, util.ErrChapterNotFound.Error(), env.Message)

	// 重置仅管理员可用
	resetPath := fmt.Sprintf("/api/progress/reset/%d", enrollment.ID)
	code, _ = s.do(http.MethodPost, resetPath, studentToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPost, resetPath, adminToken, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.Zero(t, progress.CompletionPercentage)

	code, env = s.do(http.MethodGet, fmt.Sprintf("/api/progress/enrollment/%d", enrollment.ID), studentToken, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/enrollments/%d", enrollment.ID), studentToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodDelete, fmt.Sprintf("/api/enrollments/%d", enrollment.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "Enrollment deleted successfully", env.Message)

	code, env = s.do(http.MethodGet, fmt.Sprintf("/api/progress/enrollment/%d", enrollment.ID), studentToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, util.ErrEnrollmentNotFound.Error(), env.Message)
}

func TestInvalidPathIDs(t *testing.T) {
	s := newTestServer(t)
	token := s.login(testutil.SeedStudent(t, s.db))

	code, env := s.do(http.MethodGet, "/api/enrollments/abc", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Valid enrollment ID is required", env.Message)

	code, env = s.do(http.MethodGet, "/api/progress/student/0", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Valid student ID is required", env.Message)

	code, env = s.do(http.MethodGet, "/api/enrollments?studentId=x", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Valid student ID is required", env.Message)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestLocalUploadRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := s.login(testutil.SeedStudent(t, s.db))

	code, env := s.do(http.MethodGet, "/api/storage/upload-url?fileName=notes.txt&fileType=text/plain", token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var signed struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &signed))
	require.Equal(t, "/api/storage/local/"+signed.Key, signed.URL)

	put := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, signed.URL, strings.NewReader("lesson notes"))
		req.Header.Set("Content-Type", "text/plain")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, put("").Code)
	w := put(token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+signed.Key, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lesson notes", w.Body.String())
}

func TestSwaggerDocServed(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/", doc.BasePath)
	assert.Contains(t, doc.Paths, "/api/progress/lesson/{enrollmentId}")
	assert.Contains(t, doc.Paths, "/api/storage/local/{key}")
}
