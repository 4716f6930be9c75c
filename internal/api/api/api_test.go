package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"eventide/internal/api/api"
	"eventide/internal/api/handler"
	"eventide/internal/auth"
	"eventide/internal/live"
	"eventide/internal/model"
	"eventide/internal/repo"
	"eventide/internal/repo/repotest"
	"eventide/internal/service"
	"eventide/internal/storage"
)

type envelope struct {
	Status string `json:"status"`
	Error  *struct {
		Code string `json:"code"`
		Desc string `json:"desc"`
	} `json:"error"`
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
	repo   repo.Repository
	auth   *auth.Authenticator
	files  *storage.Local
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	r := repotest.New(t)
	files, err := storage.NewLocal(t.TempDir(), "/files", &log)
	if err != nil {
		t.Fatal(err)
	}
	hub := live.NewHub(&log)
	svc := service.NewService(service.Deps{Repo: r, Log: &log, Live: hub, Files: files})
	a := auth.New(r, auth.Config{Secret: "test-secret-0123456789", Issuer: "eventide"}, nil, &log)

	router := api.NewRouters(&api.Routers{
		Handler:   handler.New(svc, a, hub, &log),
		Tokens:    a.Tokens(),
		Log:       &log,
		Mode:      "test",
		FilesRoot: files.Root(),
		FilesURL:  files.BaseURL(),
	})
	return &testServer{t: t, router: router, repo: r, auth: a, files: files}
}

// token creates a user with role and returns a bearer token for it.
func (s *testServer) token(role model.Role) (string, *model.UserProfile) {
	s.t.Helper()
	u := repotest.User(s.t, s.repo, role)
	tok, _, err := s.auth.Tokens().Issue(u.ID, time.Now())
	if err != nil {
		s.t.Fatal(err)
	}
	return tok, u
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *testServer) send(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("decode %s %s: %v (%s)", req.Method, req.URL.Path, err, w.Body.String())
		}
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
	return v
}

func eventBody(capacity int) map[string]any {
	return map[string]any{
		"name":        "Robotics Expo",
		"description": "demos",
		"starts_at":   time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"venue":       "Main Hall",
		"capacity":    capacity,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	if w, _ := s.do(http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
	w, _ := s.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "eventide_http_requests_total") {
		t.Fatalf("metrics = %d", w.Code)
	}
}

func TestSignupLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": "Ada@Example.test", "password": "s3cret-pass", "name": "Ada",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup = %d %s", w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "ada@example.test", "password": "s3cret-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}
	sess := decode[struct {
		Token string `json:"token"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
	}](t, env)
	if sess.Token == "" || sess.User.Role != string(model.RoleStudent) {
		t.Fatalf("session = %+v", sess)
	}

	w, env = s.do(http.MethodGet, "/v1/me", sess.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me = %d", w.Code)
	}
	me := decode[struct {
		Email string `json:"email"`
	}](t, env)
	if me.Email != "ada@example.test" {
		t.Fatalf("email = %q", me.Email)
	}

	w, env = s.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "ada@example.test", "password": "wrong-pass",
	})
	if w.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHENTICATED" {
		t.Fatalf("bad login = %d %+v", w.Code, env.Error)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	if w, _ := s.do(http.MethodGet, "/v1/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", w.Code)
	}
	if w, _ := s.do(http.MethodGet, "/v1/me", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", w.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.token(model.RoleOrganizer)

	w, env := s.do(http.MethodPost, "/v1/events", tok, eventBody(0))
	if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "FIELD_INCORRECT" {
		t.Fatalf("capacity 0 = %d %+v", w.Code, env.Error)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w, env = s.send(req, tok)
	if w.Code != http.StatusBadRequest || env.Error.Code != "FIELD_BADFORMAT" {
		t.Fatalf("bad json = %d %+v", w.Code, env.Error)
	}
}

func TestEventRegistrationCheckInFlow(t *testing.T) {
	s := newTestServer(t)
	orgTok, _ := s.token(model.RoleOrganizer)
	stuTok, _ := s.token(model.RoleStudent)

	w, env := s.do(http.MethodPost, "/v1/events", orgTok, eventBody(1))
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	ev := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, env)
	if ev.Status != string(model.EventDraft) {
		t.Fatalf("status = %s", ev.Status)
	}

	if w, _ := s.do(http.MethodGet, "/v1/events/"+ev.ID, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("anonymous draft read = %d", w.Code)
	}
	if w, _ := s.do(http.MethodGet, "/v1/events/"+ev.ID, orgTok, nil); w.Code != http.StatusOK {
		t.Fatalf("owner draft read = %d", w.Code)
	}
	if w, _ := s.do(http.MethodPost, "/v1/events/"+ev.ID+"/register", stuTok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("register on draft = %d", w.Code)
	}

	w, _ = s.do(http.MethodPatch, "/v1/events/"+ev.ID+"/status", orgTok, map[string]string{"status": "published"})
	if w.Code != http.StatusOK {
		t.Fatalf("publish = %d %s", w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodPost, "/v1/events/"+ev.ID+"/register", stuTok, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d %s", w.Code, w.Body.String())
	}
	reg := decode[struct {
		ID     string `json:"id"`
		QRCode string `json:"qr_code"`
		Status string `json:"status"`
	}](t, env)

	w, env = s.do(http.MethodPost, "/v1/events/"+ev.ID+"/register", stuTok, nil)
	if w.Code != http.StatusConflict || env.Error.Code != "ALREADY_REGISTERED" {
		t.Fatalf("second register = %d %+v", w.Code, env.Error)
	}
	otherTok, _ := s.token(model.RoleStudent)
	w, env = s.do(http.MethodPost, "/v1/events/"+ev.ID+"/register", otherTok, nil)
	if w.Code != http.StatusConflict || env.Error.Code != "CAPACITY_EXCEEDED" {
		t.Fatalf("full event = %d %+v", w.Code, env.Error)
	}

	w, env = s.do(http.MethodGet, "/v1/events/"+ev.ID+"/registrations", orgTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	if regs := decode[[]json.RawMessage](t, env); len(regs) != 1 {
		t.Fatalf("registrations = %d", len(regs))
	}
	if w, _ := s.do(http.MethodGet, "/v1/events/"+ev.ID+"/registrations", stuTok, nil); w.Code != http.StatusForbidden {
		t.Fatalf("student list = %d", w.Code)
	}

	w, _ = s.do(http.MethodPatch, "/v1/registrations/"+reg.ID+"/status", orgTok, map[string]string{"status": "approved"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve = %d %s", w.Code, w.Body.String())
	}

	w, _ = s.do(http.MethodGet, "/v1/registrations/"+reg.ID+"/qr", stuTok, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qr = %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	w, env = s.do(http.MethodPost, "/v1/events/"+ev.ID+"/checkin", orgTok, map[string]string{"code": "nope"})
	if w.Code != http.StatusUnprocessableEntity || env.Error.Code != "INVALID_CODE" {
		t.Fatalf("bad code = %d %+v", w.Code, env.Error)
	}

	type checkIn struct {
		Outcome     string    `json:"outcome"`
		CheckedInAt time.Time `json:"checked_in_at"`
	}
	w, env = s.do(http.MethodPost, "/v1/events/"+ev.ID+"/checkin", orgTok, map[string]string{"code": reg.QRCode})
	if w.Code != http.StatusOK {
		t.Fatalf("checkin = %d %s", w.Code, w.Body.String())
	}
	first := decode[checkIn](t, env)
	if first.Outcome != "checked_in" {
		t.Fatalf("outcome = %s", first.Outcome)
	}

	_, env = s.do(http.MethodPost, "/v1/events/"+ev.ID+"/checkin", orgTok, map[string]string{"code": reg.QRCode})
	second := decode[checkIn](t, env)
	if second.Outcome != "already_checked_in" || !second.CheckedInAt.Equal(first.CheckedInAt) {
		t.Fatalf("second = %+v, first = %+v", second, first)
	}

	w, env = s.do(http.MethodGet, "/v1/me/registrations", stuTok, nil)
	mine := decode[[]struct {
		Status string `json:"status"`
	}](t, env)
	if w.Code != http.StatusOK || len(mine) != 1 || mine[0].Status != string(model.RegistrationAttended) {
		t.Fatalf("my registrations = %d %+v", w.Code, mine)
	}
}

func TestCreateEventMultipartWithBadImage(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.token(model.RoleOrganizer)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("name", "Poster Session")
	_ = mw.WriteField("starts_at", time.Now().Add(24*time.Hour).UTC().Format(time.RFC3339))
	_ = mw.WriteField("capacity", "20")
	fw, err := mw.CreateFormFile("image", "poster.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("definitely not an image"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/events", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env := s.send(req, tok)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	if len(env.Warnings) != 1 {
		t.Fatalf("warnings = %v", env.Warnings)
	}
	ev := decode[struct {
		Capacity int     `json:"capacity"`
		ImageURL *string `json:"image_url"`
	}](t, env)
	if ev.Capacity != 20 || ev.ImageURL != nil {
		t.Fatalf("event = %+v", ev)
	}
}

func TestSetUserRole(t *testing.T) {
	s := newTestServer(t)
	adminTok, admin := s.token(model.RoleAdmin)
	_, student := s.token(model.RoleStudent)

	type user struct {
		Role string `json:"role"`
	}
	w, env := s.do(http.MethodPatch, "/v1/users/"+student.ID+"/role", adminTok, map[string]string{"role": "organizer"})
	if w.Code != http.StatusOK {
		t.Fatalf("promote = %d %s", w.Code, w.Body.String())
	}
	if u := decode[user](t, env); u.Role != "organizer" {
		t.Fatalf("role = %s", u.Role)
	}

	w, env = s.do(http.MethodPatch, "/v1/users/"+admin.ID+"/role", adminTok, map[string]string{"role": "student"})
	if w.Code != http.StatusForbidden || env.Error.Code != "DENIED" {
		t.Fatalf("self demotion = %d %+v", w.Code, env.Error)
	}
}

func TestLiveFeed(t *testing.T) {
	s := newTestServer(t)
	orgTok, org := s.token(model.RoleOrganizer)
	stuTok, student := s.token(model.RoleStudent)
	ev := repotest.Event(t, s.repo, org.ID, 5, model.EventPublished)
	reg := repotest.Registration(ev.ID, student.ID)
	if err := s.repo.CreateRegistrationTx(t.Context(), reg); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(s.router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events/" + ev.ID + "/live?token="

	_, resp, err := websocket.DefaultDialer.Dial(base+stuTok, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student dial: err=%v resp=%v", err, resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+orgTok, nil)
	if err != nil {
		t.Fatalf("organizer dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "connected" {
		t.Fatalf("first message = %+v, %v", msg, err)
	}

	w, _ := s.do(http.MethodPost, "/v1/events/"+ev.ID+"/checkin", orgTok, map[string]string{"code": reg.QRCode})
	if w.Code != http.StatusOK {
		t.Fatalf("checkin = %d %s", w.Code, w.Body.String())
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "checkin" {
		t.Fatalf("feed message = %+v, %v", msg, err)
	}
}

func TestStoredFilesHeaders(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()

	certURL, err := s.files.Save(ctx, "certificates/ev-1", ".html", []byte("<h1>Ada</h1><script>alert(1)</script>"))
	if err != nil {
		t.Fatal(err)
	}
	w, _ := s.do(http.MethodGet, certURL, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("certificate = %d", w.Code)
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.HasPrefix(csp, "sandbox") {
		t.Fatalf("certificate CSP = %q", csp)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("nosniff missing on certificate")
	}

	imgURL, err := s.files.Save(ctx, "events/ev-1", ".pdf", []byte("%PDF-1.4\n"))
	if err != nil {
		t.Fatal(err)
	}
	w, _ = s.do(http.MethodGet, imgURL, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("brochure = %d", w.Code)
	}
	if csp := w.Header().Get("Content-Security-Policy"); csp != "" {
		t.Fatalf("brochure CSP = %q", csp)
	}
}

func TestAttachWithoutFile(t *testing.T) {
	s := newTestServer(t)
	tok, org := s.token(model.RoleOrganizer)
	ev := repotest.Event(t, s.repo, org.ID, 5, model.EventDraft)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("note", "no file here")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/"+ev.ID+"/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w, env := s.send(req, tok)
	if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "FIELD_BADFORMAT" {
		t.Fatalf("attach without file = %d %+v", w.Code, env.Error)
	}
}
