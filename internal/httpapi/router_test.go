package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/arpalm/golm/internal/config"
	"github.com/arpalm/golm/internal/service/lm/model"
)

const tinyArpa = `
\data\
ngram 1=3
ngram 2=1
\1-grams:
-10	<unk>
-1	a
-2	b
\2-grams:
-0.5	a b	-0.1
\end\
`

func buildTestModel(t *testing.T) *model.Model {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.arpa")
	if err := os.WriteFile(path, []byte(tinyArpa), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m, err := model.Build(config.ModelConfig{}, path, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestHealthEndpoint(t *testing.T) {
	router := SetupRouter(NewModelController(buildTestModel(t), zap.NewNop()), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestQueryEndpoint(t *testing.T) {
	router := SetupRouter(NewModelController(buildTestModel(t), zap.NewNop()), zap.NewNop())

	body := strings.NewReader(`{"tokens":["a","b"],"mode":"single"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "-0.5") {
		t.Fatalf("body = %s, want it to contain -0.5", rec.Body.String())
	}
}

func TestQueryEndpointRejectsEmptyTokens(t *testing.T) {
	router := SetupRouter(NewModelController(buildTestModel(t), zap.NewNop()), zap.NewNop())

	body := strings.NewReader(`{"tokens":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rec.Code, rec.Body.String())
	}
}

func TestStatsEndpoint(t *testing.T) {
	router := SetupRouter(NewModelController(buildTestModel(t), zap.NewNop()), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "C2DM") {
		t.Fatalf("body = %s, want it to contain C2DM", rec.Body.String())
	}
}

func TestRequestIDHeaderIsEchoedAndGenerated(t *testing.T) {
	router := SetupRouter(NewModelController(buildTestModel(t), zap.NewNop()), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated %s header", requestIDHeader)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req2.Header.Set(requestIDHeader, "fixed-id")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)

	if got := rec2.Header().Get(requestIDHeader); got != "fixed-id" {
		t.Fatalf("request id = %q, want echoed %q", got, "fixed-id")
	}
}
