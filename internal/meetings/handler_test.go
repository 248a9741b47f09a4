package meetings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"saku-backend/internal/uploads"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestService(t)
	router := gin.New()
	api := router.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api)
	uploads.NewHandler(svc.Uploads).RegisterRoutes(api)
	return router, svc
}

func postForm(t *testing.T, router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// The full wire sequence a client runs: create, request an upload slot, PUT
// the bytes, attach, transcribe, run insights, fetch results.
func TestMeetingsPipelineOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := postForm(t, router, "/api/v1/meetings", url.Values{
		"title":    {"CLI Test Meeting"},
		"provider": {"Zoom"},
		"tags":     {`["cli","test"]`},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID   string   `json:"id"`
		Tags []string `json:"tags"`
	}
	decodeBody(t, resp, &created)
	if created.ID == "" {
		t.Fatalf("create: no meeting id returned")
	}
	if len(created.Tags) != 2 || created.Tags[0] != "cli" {
		t.Fatalf("create: expected parsed tags, got %v", created.Tags)
	}

	resp = postForm(t, router, "/api/v1/meetings/"+created.ID+"/upload-url", url.Values{
		"filename":    {"recording.mp4"},
		"contentType": {"video/mp4"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("upload-url: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var slot struct {
		UploadURL string `json:"uploadUrl"`
		ObjectURI string `json:"objectUri"`
	}
	decodeBody(t, resp, &slot)
	if slot.UploadURL == "" || slot.ObjectURI == "" {
		t.Fatalf("upload-url: missing uploadUrl/objectUri: %+v", slot)
	}

	payload := "fake mp4 bytes"
	putReq := httptest.NewRequest(http.MethodPut, slot.UploadURL, strings.NewReader(payload))
	putReq.Header.Set("Content-Type", "video/mp4")
	putResp := httptest.NewRecorder()
	router.ServeHTTP(putResp, putReq)
	if putResp.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", putResp.Code, putResp.Body.String())
	}
	var uploaded struct {
		Size int64 `json:"size"`
	}
	decodeBody(t, putResp, &uploaded)
	if uploaded.Size != int64(len(payload)) {
		t.Fatalf("upload: expected size %d, got %d", len(payload), uploaded.Size)
	}

	resp = postForm(t, router, "/api/v1/meetings/"+created.ID+"/recording", url.Values{
		"objectUri": {slot.ObjectURI},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("recording: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = postForm(t, router, "/api/v1/meetings/"+created.ID+"/transcribe", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("transcribe: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var transcribed struct {
		TranscriptDocID string `json:"transcriptDocId"`
	}
	decodeBody(t, resp, &transcribed)
	if transcribed.TranscriptDocID != "meeting-"+created.ID+"-transcript" {
		t.Fatalf("transcribe: unexpected transcriptDocId %s", transcribed.TranscriptDocID)
	}

	resp = postForm(t, router, "/api/v1/meetings/"+created.ID+"/insights/run", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("insights run: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/meetings/"+created.ID, nil)
	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, getReq)
	if getResp.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", getResp.Code)
	}
	var fetched struct {
		Meeting struct {
			Recording struct {
				Status string `json:"status"`
				Size   int64  `json:"size"`
			} `json:"recording"`
			Insights struct {
				Status  string `json:"status"`
				Summary string `json:"summary"`
			} `json:"insights"`
		} `json:"meeting"`
	}
	decodeBody(t, getResp, &fetched)
	if fetched.Meeting.Recording.Status != RecordingTranscribed {
		t.Fatalf("expected transcribed recording, got %s", fetched.Meeting.Recording.Status)
	}
	if fetched.Meeting.Recording.Size != int64(len(payload)) {
		t.Fatalf("expected recording size from consumed registry, got %d", fetched.Meeting.Recording.Size)
	}
	if fetched.Meeting.Insights.Status != InsightsReady || fetched.Meeting.Insights.Summary == "" {
		t.Fatalf("expected ready insights with summary, got %+v", fetched.Meeting.Insights)
	}
}

func TestGetMissingMeetingReturns404(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings/missing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestTranscribeWithoutRecordingReturns400(t *testing.T) {
	router, svc := newTestRouter(t)
	m := mustCreate(t, svc, CreateInput{Title: "Sync"})

	resp := postForm(t, router, "/api/v1/meetings/"+m.ID+"/transcribe", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}
