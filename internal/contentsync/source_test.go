package contentsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/question-sets/ext-42/items" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"position":1,"loid":"LO-1","type":"short_text","question_html":"<p>Q1</p>","payload":{"answer":"x"}},
			{"position":2,"loid":"LO-2","type":"either_or","question_html":"<p>Q2</p>","payload":{"option_a":"T","option_b":"F","correct":"a"}}
		]}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceConfig{BaseURL: srv.URL, APIKey: "sekrit"})
	items, err := src.FetchQuestionSet(context.Background(), "ext-42")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 || items[0].LOID != "LO-1" || items[1].Position != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestHTTPSourceFetchFailureWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceConfig{BaseURL: srv.URL})
	_, err := src.FetchQuestionSet(context.Background(), "ext-42")
	if !errors.Is(err, ErrSourceFetch) {
		t.Fatalf("expected ErrSourceFetch, got %v", err)
	}
}

func TestHTTPSourceRequiresConfig(t *testing.T) {
	src := NewHTTPSource(HTTPSourceConfig{})
	if _, err := src.FetchQuestionSet(context.Background(), "x"); !errors.Is(err, ErrSourceFetch) {
		t.Fatalf("expected ErrSourceFetch for missing base url, got %v", err)
	}

	src = NewHTTPSource(HTTPSourceConfig{BaseURL: "http://localhost:1"})
	if _, err := src.FetchQuestionSet(context.Background(), "  "); !errors.Is(err, ErrSourceFetch) {
		t.Fatalf("expected ErrSourceFetch for empty external id, got %v", err)
	}
}
