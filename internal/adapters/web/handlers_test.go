package web_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	web "returns-copilot/internal/adapters/web"
	"returns-copilot/internal/app"
	"returns-copilot/internal/core"
)

// fakeApp is an in-memory ApplicationService; cases it does not know
// return ErrCaseNotFound.
type fakeApp struct {
	cases  map[string]*core.Case
	photos []string
}

func (f *fakeApp) StartChat(_ context.Context) (*app.ChatStartResult, error) {
	return &app.ChatStartResult{SessionID: "sess-1"}, nil
}

func (f *fakeApp) HandleChatMessage(_ context.Context, req app.ChatMessageRequest) (*app.ChatMessageResult, error) {
	return &app.ChatMessageResult{SessionID: req.SessionID, AssistantMessage: "ok"}, nil
}

func (f *fakeApp) GetChatMessages(_ context.Context, _ string) ([]core.ChatMessage, error) {
	return nil, nil
}

func (f *fakeApp) Resolve(_ context.Context, _ app.ResolveRequest) (*app.ResolveResult, error) {
	return &app.ResolveResult{
		Decision:      core.Decision{ResolutionType: core.ResolutionReturnForRefund, Eligible: true},
		CustomerReply: "You can return it for a refund.",
	}, nil
}

func (f *fakeApp) ListCases(_ context.Context, _ *core.CaseStatus) (*app.CaseListResult, error) {
	return &app.CaseListResult{Cases: []core.Case{}}, nil
}

func (f *fakeApp) GetCase(_ context.Context, caseID string) (*core.Case, error) {
	c, ok := f.cases[caseID]
	if !ok {
		return nil, core.ErrCaseNotFound
	}
	return c, nil
}

func (f *fakeApp) AddCasePhoto(_ context.Context, caseID, url string) (*core.Case, error) {
	c, ok := f.cases[caseID]
	if !ok {
		return nil, core.ErrCaseNotFound
	}
	f.photos = append(f.photos, url)
	return c, nil
}

func (f *fakeApp) RecordHumanDecision(_ context.Context, req app.HumanDecisionRequest) (*core.Case, error) {
	return f.GetCase(context.Background(), req.CaseID)
}

func (f *fakeApp) FinalizeCase(_ context.Context, caseID string) (*app.FinalizeCaseResult, error) {
	return &app.FinalizeCaseResult{CaseID: caseID, Status: core.CaseClosed}, nil
}

func newTestHandler(t *testing.T, svc app.ApplicationService) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("UPLOAD_DIR", dir)
	t.Setenv("REVIEWER_USER", "reviewer")
	t.Setenv("REVIEWER_PASS", "secret")
	return web.NewHandler(svc, "*"), dir
}

func photoUpload(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte("not-really-a-jpeg")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadPhoto_NoReviewerCredentialsNeeded(t *testing.T) {
	svc := &fakeApp{cases: map[string]*core.Case{
		"case-1": {ID: "case-1", Status: core.CaseNeedsCustomerPhotos},
	}}
	h, dir := newTestHandler(t, svc)

	body, contentType := photoUpload(t, "defect.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/cases/case-1/photos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("customer upload without credentials = %d, want 200: %s", rec.Code, rec.Body)
	}
	if len(svc.photos) != 1 || !strings.HasPrefix(svc.photos[0], "/uploads/case-1-") {
		t.Errorf("recorded photos = %v, want one /uploads/case-1-* URL", svc.photos)
	}
	files, err := os.ReadDir(dir)
	if err != nil || len(files) != 1 {
		t.Errorf("upload dir entries = %d (%v), want 1", len(files), err)
	}
}

func TestUploadPhoto_UnknownCaseLeavesNoFile(t *testing.T) {
	svc := &fakeApp{cases: map[string]*core.Case{}}
	h, dir := newTestHandler(t, svc)

	body, contentType := photoUpload(t, "defect.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/cases/nope/photos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown case = %d, want 404", rec.Code)
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("upload dir entries = %d, want 0 (nothing written for unknown cases)", len(files))
	}
}

func TestUploadPhoto_RejectsUnknownExtension(t *testing.T) {
	svc := &fakeApp{cases: map[string]*core.Case{
		"case-1": {ID: "case-1", Status: core.CaseNeedsCustomerPhotos},
	}}
	h, _ := newTestHandler(t, svc)

	body, contentType := photoUpload(t, "payload.exe")
	req := httptest.NewRequest(http.MethodPost, "/api/cases/case-1/photos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("exe upload = %d, want 400", rec.Code)
	}
}

func TestReviewerSurfaceStillRequiresAuth(t *testing.T) {
	h, _ := newTestHandler(t, &fakeApp{})

	req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated case list = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cases", nil)
	req.SetBasicAuth("reviewer", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated case list = %d, want 200", rec.Code)
	}
}

func TestResolve_RequiresOrderIDAndReason(t *testing.T) {
	h, _ := newTestHandler(t, &fakeApp{})

	req := httptest.NewRequest(http.MethodPost, "/api/resolve",
		strings.NewReader(`{"order_id":"ORD-1001"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("resolve without reason = %d, want 400", rec.Code)
	}
}

func TestResolve_ReturnsDecisionAndReply(t *testing.T) {
	h, _ := newTestHandler(t, &fakeApp{})

	req := httptest.NewRequest(http.MethodPost, "/api/resolve",
		strings.NewReader(`{"order_id":"ORD-1001","reason":"Doesn't fit"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("resolve = %d, want 200: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"return_for_refund"`) || !strings.Contains(body, `"customer_reply"`) {
		t.Errorf("resolve body missing decision or reply: %s", body)
	}
}
