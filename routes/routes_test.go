package routes

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"paper-submission-api/controllers"
	"paper-submission-api/middleware"
	"paper-submission-api/models"
	"paper-submission-api/services"
	"paper-submission-api/storage"
	"paper-submission-api/utils"

	"github.com/gin-gonic/gin"
)

const testSecret = "routes-test-secret"

type sentMail struct {
	to      string
	subject string
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	refuse map[string]bool
}

func (f *fakeMailer) SendMail(from string, to []string, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse[to[0]] {
		return errors.New("550 mailbox unavailable")
	}
	f.sent = append(f.sent, sentMail{to: to[0], subject: subject})
	return nil
}

func (f *fakeMailer) to(addr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.to == addr {
			n++
		}
	}
	return n
}

type testServer struct {
	router *gin.Engine
	repo   *services.MemoryRepository
	mailer *fakeMailer
}

func newTestServer(t *testing.T, loginLimit int) *testServer {
	t.Helper()
	return newTestServerBehind(t, loginLimit, nil)
}

// newTestServerBehind builds the server as if it ran behind the given proxies.
func newTestServerBehind(t *testing.T, loginLimit int, proxies []string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := services.NewMemoryRepository()
	ctx := context.Background()
	adminHash, _ := utils.HashPassword("chair-pass-1")
	if err := repo.InsertAdmin(ctx, &models.AdminUser{ID: "admin-1", Name: "Chair", Username: "chair", PasswordHash: adminHash}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	revHash, _ := utils.HashPassword("review-pass-1")
	for _, r := range []models.Reviewer{
		{ID: "rev-1", Name: "Dana", Email: "dana@reviewers.test", Username: "dana", PasswordHash: revHash, IsActive: true},
		{ID: "rev-2", Name: "Eli", Email: "eli@reviewers.test", Username: "eli", PasswordHash: revHash, IsActive: true},
	} {
		r := r
		if err := repo.InsertReviewer(ctx, &r); err != nil {
			t.Fatalf("seed reviewer: %v", err)
		}
	}

	store, err := storage.NewLocalStore(t.TempDir(), "http://files.test")
	if err != nil {
		t.Fatalf("local store: %v", err)
	}

	mailer := &fakeMailer{refuse: map[string]bool{}}
	notifier := services.NewNotificationService(mailer, repo, nil)
	workflow := services.NewWorkflowService(repo, notifier, services.WorkflowOptions{DashboardURL: "http://app.test/dashboard"})
	intake := services.NewSubmissionService(repo, store, notifier, services.SubmissionOptions{
		MaxUploadBytes: 1 << 20,
		AdminEmail:     "chair@conf.test",
	})
	reviewers := services.NewReviewerService(repo, notifier, "http://app.test/login", nil)
	auth := services.NewAuthService(repo, nil)

	router, err := NewEngine(proxies)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	SetupRoutes(router, Dependencies{
		Auth:        controllers.NewAuthController(auth, testSecret, time.Hour),
		Submissions: controllers.NewSubmissionController(intake, workflow, 1<<20),
		Admin:       controllers.NewAdminController(workflow, reviewers, notifier),
		Dashboard:   controllers.NewDashboardController(workflow),
		JWTSecret:   testSecret,
		Resolve: func(ctx context.Context, p services.Principal) error {
			_, err := auth.Resolve(ctx, p)
			return err
		},
		Limiter:         middleware.NewMemoryLimiter(),
		LoginRateLimit:  loginLimit,
		LoginRateWindow: time.Minute,
		FilesDir:        store.Root(),
	})
	return &testServer{router: router, repo: repo, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", req.Method, req.URL.Path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"username": username, "password": password})
	if code != http.StatusOK {
		t.Fatalf("login %s = %d %v", username, code, body)
	}
	return body["token"].(string)
}

func formFields() map[string]string {
	return map[string]string{
		"author_name":         "Ada Lovelace",
		"email":               "ada@example.org",
		"country_code":        "+44",
		"phone":               "2079460000",
		"paper_title":         "Notes on the Analytical Engine",
		"institution":         "Royal Society",
		"designation":         "Researcher",
		"department":          "Mathematics",
		"presentation_mode":   "online",
		"journal_publication": "maybe",
	}
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = part.Write(data)
	}
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (s *testServer) submit(t *testing.T) string {
	t.Helper()
	code, body := s.serve(t, multipartRequest(t, formFields(), "engine.pdf", []byte("%PDF-1.7 engine")))
	if code != http.StatusCreated {
		t.Fatalf("submit = %d %v", code, body)
	}
	return body["submission"].(map[string]interface{})["id"].(string)
}

func TestHealthAndNoRoute(t *testing.T) {
	s := newTestServer(t, 0)
	if code, body := s.do(t, http.MethodGet, "/api/v1/health", "", nil); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/api/v1/nope", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", code)
	}
}

func TestLoginAndProfile(t *testing.T) {
	s := newTestServer(t, 0)

	if code, _ := s.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"username": "chair", "password": "wrong"}); code != http.StatusUnauthorized {
		t.Fatalf("bad password = %d", code)
	}
	if code, _ := s.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"username": "chair"}); code != http.StatusBadRequest {
		t.Fatalf("missing password = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/api/v1/profile", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("profile without token = %d", code)
	}

	token := s.login(t, "dana", "review-pass-1")
	code, body := s.do(t, http.MethodGet, "/api/v1/profile", token, nil)
	user, _ := body["user"].(map[string]interface{})
	if code != http.StatusOK || user["role"] != models.RoleReviewer || user["username"] != "dana" {
		t.Fatalf("profile = %d %v", code, body)
	}
}

func TestPublicSubmissionEndpoints(t *testing.T) {
	s := newTestServer(t, 0)

	id := s.submit(t)
	if s.mailer.to("ada@example.org") != 1 || s.mailer.to("chair@conf.test") != 1 {
		t.Fatalf("receipt mails = %+v", s.mailer.sent)
	}

	payload := gin.H{"file_base64": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 b64")), "file_name": "b64.pdf", "mime_type": "application/pdf"}
	for k, v := range formFields() {
		payload[k] = v
	}
	code, body := s.do(t, http.MethodPost, "/api/v1/submissions/base64", "", payload)
	if code != http.StatusCreated {
		t.Fatalf("base64 submit = %d %v", code, body)
	}
	fileURL, _ := body["file_url"].(string)
	if body["file_id"] == "" || !strings.HasPrefix(fileURL, "http://files.test/files/papers/") {
		t.Fatalf("base64 response = %v", body)
	}

	fields := formFields()
	delete(fields, "paper_title")
	code, body = s.serve(t, multipartRequest(t, fields, "", nil))
	if code != http.StatusBadRequest {
		t.Fatalf("invalid submit = %d %v", code, body)
	}
	flagged, _ := body["fields"].(map[string]interface{})
	if flagged["paper_title"] == nil || flagged["file"] == nil {
		t.Fatalf("field errors = %v", body)
	}

	n, _ := s.repo.CountSubmissions(context.Background(), services.SubmissionFilter{})
	if n != 2 {
		t.Fatalf("stored submissions = %d", n)
	}

	admin := s.login(t, "chair", "chair-pass-1")
	code, body = s.do(t, http.MethodGet, "/api/v1/submissions/"+id, admin, nil)
	sub, _ := body["submission"].(map[string]interface{})
	if code != http.StatusOK || sub["status"] != models.StatusPending {
		t.Fatalf("get submission = %d %v", code, body)
	}
}

func TestReviewerCannotReachAdminRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.login(t, "dana", "review-pass-1")

	for _, path := range []string{"/api/v1/admin/reviewers", "/api/v1/admin/notifications"} {
		if code, _ := s.do(t, http.MethodGet, path, token, nil); code != http.StatusForbidden {
			t.Fatalf("%s = %d", path, code)
		}
	}
	if code, _ := s.do(t, http.MethodPost, "/api/v1/admin/submissions/x/assign", token, gin.H{"reviewer_id": "rev-1"}); code != http.StatusForbidden {
		t.Fatalf("reviewer assign = %d", code)
	}
}

func TestAssignReviewAndDecide(t *testing.T) {
	s := newTestServer(t, 0)
	id := s.submit(t)
	admin := s.login(t, "chair", "chair-pass-1")

	code, body := s.do(t, http.MethodPost, "/api/v1/admin/submissions/"+id+"/assign", admin, gin.H{"reviewer_id": "rev-1"})
	sub, _ := body["submission"].(map[string]interface{})
	if code != http.StatusOK || sub["status"] != models.StatusAssigned || sub["assigned_to"] != "rev-1" {
		t.Fatalf("assign = %d %v", code, body)
	}
	if body["warnings"] != nil || s.mailer.to("dana@reviewers.test") != 1 {
		t.Fatalf("assignment mail missing: %v %+v", body, s.mailer.sent)
	}

	dana := s.login(t, "dana", "review-pass-1")
	eli := s.login(t, "eli", "review-pass-1")

	code, body = s.do(t, http.MethodGet, "/api/v1/submissions?bucket=assigned", dana, nil)
	if list, _ := body["submissions"].([]interface{}); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("dana's list = %d %v", code, body)
	}
	code, body = s.do(t, http.MethodGet, "/api/v1/submissions", eli, nil)
	if list, _ := body["submissions"].([]interface{}); code != http.StatusOK || len(list) != 0 {
		t.Fatalf("eli's list = %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/api/v1/submissions/"+id, eli, nil); code != http.StatusForbidden {
		t.Fatalf("eli read someone else's paper: %d", code)
	}
	if code, _ := s.do(t, http.MethodPut, "/api/v1/submissions/"+id+"/status", eli, gin.H{"status": "selected"}); code != http.StatusForbidden {
		t.Fatalf("eli decided someone else's paper: %d", code)
	}

	s.mailer.refuse["ada@example.org"] = true
	code, body = s.do(t, http.MethodPut, "/api/v1/submissions/"+id+"/status", dana, gin.H{"status": "selected"})
	sub, _ = body["submission"].(map[string]interface{})
	if code != http.StatusOK || sub["status"] != models.StatusSelected {
		t.Fatalf("decide = %d %v", code, body)
	}
	if warnings, _ := body["warnings"].([]interface{}); len(warnings) != 1 {
		t.Fatalf("expected one warning for the refused decision mail: %v", body)
	}

	code, body = s.do(t, http.MethodGet, "/api/v1/submissions/"+id+"/history", admin, nil)
	if history, _ := body["history"].([]interface{}); code != http.StatusOK || len(history) != 2 {
		t.Fatalf("history = %d %v", code, body)
	}

	code, body = s.do(t, http.MethodGet, "/api/v1/dashboard/stats", admin, nil)
	stats, _ := body["stats"].(map[string]interface{})
	buckets, _ := stats["buckets"].(map[string]interface{})
	if code != http.StatusOK || buckets["selected"] != float64(1) || stats["active_reviewers"] != float64(2) {
		t.Fatalf("stats = %d %v", code, body)
	}

	code, body = s.do(t, http.MethodGet, "/api/v1/admin/notifications?limit=50", admin, nil)
	page, _ := body["pagination"].(map[string]interface{})
	if code != http.StatusOK || page["total_count"].(float64) < 4 {
		t.Fatalf("notification log = %d %v", code, body)
	}
}

func TestDeactivatedReviewerLosesAccess(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.login(t, "chair", "chair-pass-1")
	dana := s.login(t, "dana", "review-pass-1")

	code, body := s.do(t, http.MethodPost, "/api/v1/admin/reviewers/rev-1/toggle-active", admin, nil)
	rev, _ := body["reviewer"].(map[string]interface{})
	if code != http.StatusOK || rev["is_active"] != false {
		t.Fatalf("toggle = %d %v", code, body)
	}

	code, body = s.do(t, http.MethodGet, "/api/v1/submissions", dana, nil)
	if code != http.StatusUnauthorized || body["error"] != "Account is disabled" {
		t.Fatalf("disabled reviewer = %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"username": "dana", "password": "review-pass-1"}); code != http.StatusConflict {
		t.Fatalf("disabled login = %d", code)
	}

	code, body = s.do(t, http.MethodGet, "/api/v1/admin/reviewers/assignable", admin, nil)
	if list, _ := body["reviewers"].([]interface{}); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("assignable = %d %v", code, body)
	}
}

func TestCreateReviewerEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.login(t, "chair", "chair-pass-1")

	code, body := s.do(t, http.MethodPost, "/api/v1/admin/reviewers", admin, gin.H{
		"name": "Fay", "email": "fay@reviewers.test", "username": "fay", "password": "fay-secret-1",
	})
	if code != http.StatusCreated {
		t.Fatalf("create reviewer = %d %v", code, body)
	}
	if s.mailer.to("fay@reviewers.test") != 1 {
		t.Fatalf("credentials mail not sent")
	}
	s.login(t, "fay", "fay-secret-1")

	if code, _ := s.do(t, http.MethodPost, "/api/v1/admin/reviewers", admin, gin.H{
		"name": "Other", "email": "o@reviewers.test", "username": "fay",
	}); code != http.StatusConflict {
		t.Fatalf("duplicate username = %d", code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, 2)
	for i := 0; i < 2; i++ {
		if code, _ := s.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"username": "chair", "password": "wrong"}); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d", i, code)
		}
	}
	if code, _ := s.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"username": "chair", "password": "chair-pass-1"}); code != http.StatusTooManyRequests {
		t.Fatalf("third attempt = %d", code)
	}
}

func (s *testServer) loginFrom(t *testing.T, forwardedFor string) int {
	t.Helper()
	raw, _ := json.Marshal(gin.H{"username": "chair", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	code, _ := s.serve(t, req)
	return code
}

func TestLoginRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	s := newTestServer(t, 1)
	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		codes = append(codes, s.loginFrom(t, "203.0.113."+strconv.Itoa(i+1)))
	}
	if codes[0] != http.StatusUnauthorized {
		t.Fatalf("first attempt = %d", codes[0])
	}
	for i, code := range codes[1:] {
		if code != http.StatusTooManyRequests {
			t.Fatalf("attempt %d with a rotated header = %d, codes %v", i+1, code, codes)
		}
	}
}

func TestLoginRateLimitHonoursTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1
	s := newTestServerBehind(t, 1, []string{"192.0.2.1"})
	if code := s.loginFrom(t, "203.0.113.1"); code != http.StatusUnauthorized {
		t.Fatalf("first client = %d", code)
	}
	if code := s.loginFrom(t, "203.0.113.2"); code != http.StatusUnauthorized {
		t.Fatalf("second client behind the proxy = %d", code)
	}
	if code := s.loginFrom(t, "203.0.113.1"); code != http.StatusTooManyRequests {
		t.Fatalf("repeat client = %d", code)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func oversizedBase64Body(size int) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"file_name":"big.pdf","file_base64":"`)
	buf.Write(bytes.Repeat([]byte("A"), size))
	buf.WriteString(`"}`)
	return buf.Bytes()
}

func TestBase64SubmissionBodyIsCapped(t *testing.T) {
	s := newTestServer(t, 0)
	body := oversizedBase64Body(8 << 20)

	declared := &countingReader{r: bytes.NewReader(body)}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/base64", declared)
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(len(body))
	if code, _ := s.serve(t, req); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("declared oversize = %d", code)
	}
	if declared.n != 0 {
		t.Fatalf("read %d bytes of a body rejected by its length", declared.n)
	}

	streamed := &countingReader{r: bytes.NewReader(body)}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/submissions/base64", streamed)
	req.Header.Set("Content-Type", "application/json")
	if code, _ := s.serve(t, req); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("streamed oversize = %d", code)
	}
	if streamed.n > 2<<20 {
		t.Fatalf("read %d bytes before rejecting", streamed.n)
	}

	if n, _ := s.repo.CountSubmissions(context.Background(), services.SubmissionFilter{}); n != 0 {
		t.Fatalf("oversized body stored a submission")
	}
}

func TestMultipartSubmissionBodyIsCapped(t *testing.T) {
	s := newTestServer(t, 0)
	req := multipartRequest(t, formFields(), "big.pdf", bytes.Repeat([]byte("x"), 3<<20))
	if code, body := s.serve(t, req); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("multipart oversize = %d %v", code, body)
	}

	streamed := multipartRequest(t, formFields(), "big.pdf", bytes.Repeat([]byte("x"), 3<<20))
	counter := &countingReader{r: streamed.Body}
	streamed.Body = io.NopCloser(counter)
	streamed.ContentLength = -1
	if code, body := s.serve(t, streamed); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("streamed multipart oversize = %d %v", code, body)
	}
	if counter.n > 2<<20 {
		t.Fatalf("read %d bytes before rejecting", counter.n)
	}
}
