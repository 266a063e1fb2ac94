package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchPageConvertsToMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Title</h1><p>Some <strong>bold</strong> text.</p></body></html>`))
	}))
	defer server.Close()

	f := NewPageFetcher()
	md, err := f.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "# Title") {
		t.Errorf("expected heading in markdown, got %q", md)
	}
	if !strings.Contains(md, "**bold**") {
		t.Errorf("expected bold markup, got %q", md)
	}
}

func TestFetchPageHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewPageFetcher()
	if _, err := f.FetchPage(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchPageTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("word ", 20000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>" + long + "</p>"))
	}))
	defer server.Close()

	f := NewPageFetcher()
	md, err := f.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(md, "[Content truncated]") {
		t.Error("expected truncation marker")
	}
	if len(md) > maxPageChars+100 {
		t.Errorf("content not truncated: %d chars", len(md))
	}
}
