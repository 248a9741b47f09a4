package bootstrap_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"saku-backend/internal/bootstrap"
	"saku-backend/internal/shared/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg := config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		FrontendURL:     "http://localhost:3000",
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func doJSON(t *testing.T, app *bootstrap.App, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	w := doJSON(t, app, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if ok, _ := decode(t, w)["ok"].(bool); !ok {
		t.Fatalf("health body = %s", w.Body.String())
	}

	w = doJSON(t, app, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "transcriptions_total") {
		t.Fatalf("metrics body missing counters: %s", w.Body.String())
	}
}

func TestKnowledgeFlowEndToEnd(t *testing.T) {
	app := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("The quarterly roadmap focuses on the billing migration."))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status = %d body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, app, http.MethodPost, "/api/v1/search", map[string]any{"query": "billing migration"})
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d body = %s", w.Code, w.Body.String())
	}
	results, _ := decode(t, w)["results"].([]any)
	if len(results) == 0 {
		t.Fatalf("expected search results, got %s", w.Body.String())
	}

	// No model key configured, so chat answers degrade but still cite.
	w = doJSON(t, app, http.MethodPost, "/api/v1/chat", map[string]any{"message": "What is the roadmap about?"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat status = %d body = %s", w.Code, w.Body.String())
	}
	chatBody := decode(t, w)
	if degraded, _ := chatBody["degraded"].(bool); !degraded {
		t.Fatalf("expected degraded answer, got %s", w.Body.String())
	}
	if answer, _ := chatBody["answer"].(string); !strings.Contains(answer, "not configured") {
		t.Fatalf("unexpected answer: %q", answer)
	}
}

func TestMeetingPipelineEndToEnd(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{}
	form.Set("title", "Weekly Sync")
	form.Set("provider", "zoom")
	form.Set("tags", `["weekly"]`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body.String())
	}
	meetingID, _ := decode(t, w)["id"].(string)
	if meetingID == "" {
		t.Fatalf("missing meeting id in %s", w.Body.String())
	}

	w = doJSON(t, app, http.MethodPost, "/api/v1/meetings/"+meetingID+"/upload-url",
		map[string]any{"filename": "sync.webm", "contentType": "video/webm"})
	if w.Code != http.StatusOK {
		t.Fatalf("upload-url status = %d body = %s", w.Code, w.Body.String())
	}
	grant := decode(t, w)
	uploadURL, _ := grant["uploadUrl"].(string)
	objectURI, _ := grant["objectUri"].(string)
	if uploadURL == "" || objectURI == "" {
		t.Fatalf("incomplete grant: %s", w.Body.String())
	}

	payload := []byte("fake recording bytes")
	req = httptest.NewRequest(http.MethodPut, uploadURL, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "video/webm")
	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d body = %s", w.Code, w.Body.String())
	}
	if size, _ := decode(t, w)["size"].(float64); int(size) != len(payload) {
		t.Fatalf("uploaded size mismatch: %s", w.Body.String())
	}

	w = doJSON(t, app, http.MethodPost, "/api/v1/meetings/"+meetingID+"/recording",
		map[string]any{"objectUri": objectURI})
	if w.Code != http.StatusOK {
		t.Fatalf("recording status = %d body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, app, http.MethodPost, "/api/v1/meetings/"+meetingID+"/transcribe", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("transcribe status = %d body = %s", w.Code, w.Body.String())
	}
	if docID, _ := decode(t, w)["transcriptDocId"].(string); docID != "meeting-"+meetingID+"-transcript" {
		t.Fatalf("unexpected transcript doc id in %s", w.Body.String())
	}

	w = doJSON(t, app, http.MethodPost, "/api/v1/meetings/"+meetingID+"/insights/run", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("insights run status = %d body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, app, http.MethodGet, "/api/v1/meetings/"+meetingID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d body = %s", w.Code, w.Body.String())
	}
	meeting, _ := decode(t, w)["meeting"].(map[string]any)
	recording, _ := meeting["recording"].(map[string]any)
	if status, _ := recording["status"].(string); status != "transcribed" {
		t.Fatalf("recording status = %v", recording["status"])
	}
	insights, _ := meeting["insights"].(map[string]any)
	if status, _ := insights["status"].(string); status != "ready" {
		t.Fatalf("insights status = %v", insights["status"])
	}
}
