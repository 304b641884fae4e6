package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

type mockReportService struct {
	dashboardFn  func(ctx context.Context) (*Dashboard, error)
	setSummaryFn func(ctx context.Context, setID int64) (*SetSummary, error)
	exportFn     func(ctx context.Context, setID int64) ([]byte, error)
}

func (m *mockReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	if m.dashboardFn == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return m.dashboardFn(ctx)
}

func (m *mockReportService) SetSummary(ctx context.Context, setID int64) (*SetSummary, error) {
	if m.setSummaryFn == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return m.setSummaryFn(ctx, setID)
}

func (m *mockReportService) ExportSetExcel(ctx context.Context, setID int64) ([]byte, error) {
	if m.exportFn == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return m.exportFn(ctx, setID)
}

func newRouter(svc reportService) http.Handler {
	h := &Handler{svc: svc}
	r := chi.NewRouter()
	r.Get("/reports/dashboard", h.Dashboard)
	r.Get("/reports/sets/{id}", h.SetSummary)
	r.Get("/reports/sets/{id}/export", h.ExportSet)
	return r
}

func TestDashboard(t *testing.T) {
	svc := &mockReportService{
		dashboardFn: func(ctx context.Context) (*Dashboard, error) {
			return &Dashboard{QuizSets: 3, Questions: 42, AverageScore: 66.5}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/reports/dashboard", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data Dashboard `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data.Questions != 42 {
		t.Fatalf("unexpected dashboard: %+v", body.Data)
	}
}

func TestSetSummaryNotFound(t *testing.T) {
	svc := &mockReportService{
		setSummaryFn: func(ctx context.Context, setID int64) (*SetSummary, error) {
			return nil, ErrSetNotFound
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/reports/sets/99", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestExportSetServesWorkbook(t *testing.T) {
	f := excelize.NewFile()
	raw, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	svc := &mockReportService{
		exportFn: func(ctx context.Context, setID int64) ([]byte, error) {
			if setID != 7 {
				t.Fatalf("expected set 7, got %d", setID)
			}
			return raw.Bytes(), nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/reports/sets/7/export", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}
}
