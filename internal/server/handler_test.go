package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/northstar-intel/northstar/internal/classify"
	"github.com/northstar-intel/northstar/internal/enrich"
	"github.com/northstar-intel/northstar/internal/health"
	"github.com/northstar-intel/northstar/internal/ingest"
	"github.com/northstar-intel/northstar/internal/pipeline"
	"github.com/northstar-intel/northstar/internal/server"
	"github.com/northstar-intel/northstar/internal/vulnrisk"
)

const intentBundle = `{
	"task": "intent",
	"labels": ["planning", "discussion", "irrelevant"],
	"pipeline": {
		"vectorizer": {"vocabulary": {"ddos": 0}, "idf": [1]},
		"classifier": {"kind": "logreg", "coefficients": [[4], [0], [0]], "intercepts": [0, 0, 0]}
	}
}`

const sectorBundle = `{
	"task": "sector",
	"labels": ["banking", "other"],
	"pipeline": {
		"vectorizer": {"vocabulary": {"bank": 0}, "idf": [1]},
		"classifier": {"kind": "logreg", "coefficients": [[2], [0]], "intercepts": [0, 0]}
	}
}`

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	intent, err := classify.Parse([]byte(intentBundle))
	if err != nil {
		t.Fatal(err)
	}
	sector, err := classify.Parse([]byte(sectorBundle))
	if err != nil {
		t.Fatal(err)
	}

	store := ingest.NewMemoryStore()
	analyzer := pipeline.NewAnalyzer(intent, sector, vulnrisk.HeuristicEstimator{}, enrich.StaticEnricher{}, zap.NewNop())
	gate := ingest.NewGate(store, analyzer, zap.NewNop())
	h := server.NewHandler(gate, store, health.New(0, zap.NewNop()), zap.NewNop())
	return server.NewRouter(h, server.RouterConfig{RateLimitRPS: 100})
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIngest_201_newPost(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/api/ingest",
		`{"source":"forum","url":"https://f.example.com/1","text":"planning ddos on the bank portal"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp ingest.Result
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Duplicate {
		t.Error("new post flagged as duplicate")
	}
	if resp.AlertID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("missing alert id")
	}
}

func TestIngest_200_duplicate(t *testing.T) {
	router := setupRouter(t)
	body := `{"source":"forum","url":"https://f.example.com/1","text":"planning ddos on the bank portal"}`

	first := postJSON(router, "/api/ingest", body)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	second := postJSON(router, "/api/ingest", body)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d: %s", second.Code, second.Body.String())
	}

	var resp ingest.Result
	json.Unmarshal(second.Body.Bytes(), &resp)
	if !resp.Duplicate {
		t.Error("duplicate not flagged")
	}
}

func TestIngest_400_missingFields(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/api/ingest", `{"source":"forum"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIngest_400_malformedJSON(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/api/ingest", `{nope`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetAlert_200(t *testing.T) {
	router := setupRouter(t)

	created := postJSON(router, "/api/ingest",
		`{"source":"forum","url":"https://f.example.com/1","text":"planning ddos on the bank portal"}`)
	var res ingest.Result
	json.Unmarshal(created.Body.Bytes(), &res)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/"+res.AlertID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var alert ingest.AlertRecord
	if err := json.Unmarshal(w.Body.Bytes(), &alert); err != nil {
		t.Fatal(err)
	}
	if alert.Category == "" || alert.Status != "open" {
		t.Errorf("unexpected alert: %+v", alert)
	}
}

func TestGetAlert_404(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/1f1171e2-58b6-4a34-9a09-5c38a8a7d9b1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetAlert_400_invalidID(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListAlerts_200(t *testing.T) {
	router := setupRouter(t)

	postJSON(router, "/api/ingest",
		`{"source":"forum","url":"https://f.example.com/1","text":"planning ddos on the bank portal"}`)
	postJSON(router, "/api/ingest",
		`{"source":"forum","url":"https://f.example.com/2","text":"another ddos discussion thread"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Alerts []ingest.AlertRecord `json:"alerts"`
		Count  int                  `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 || len(resp.Alerts) != 2 {
		t.Errorf("expected 2 alerts, got count=%d len=%d", resp.Count, len(resp.Alerts))
	}
}

func TestListAlerts_400_badLimit(t *testing.T) {
	router := setupRouter(t)

	for _, limit := range []string{"0", "501", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/alerts?limit="+limit, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", limit, w.Code)
		}
	}
}

func TestHealthz_200(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestReadyz_200_noProbes(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var report health.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != "ok" {
		t.Errorf("status: got %q", report.Status)
	}
}
