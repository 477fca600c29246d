package reader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/scireview/internal/extract/pdftest"
)

func write(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadArticle_Text(t *testing.T) {
	p := write(t, "article.txt", []byte("Plain article body."))
	got, err := New().ReadArticle(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Plain article body." {
		t.Errorf("got %q", got)
	}
}

func TestReadArticle_PDF(t *testing.T) {
	p := write(t, "paper.PDF", pdftest.Build(pdftest.Info{Title: "T"}, "Graph neural networks"))
	got, err := New().ReadArticle(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Graph neural networks") {
		t.Errorf("got %q", got)
	}
}

func TestReadArticle_Missing(t *testing.T) {
	_, err := New().ReadArticle(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not exist", err)
	}
}

func TestReadArticle_Empty(t *testing.T) {
	p := write(t, "blank.md", []byte("  \n"))
	_, err := New().ReadArticle(context.Background(), p)
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestReadArticle_ArxivURL(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdftest.Build(pdftest.Info{}, "Attention is all you need"))
	}))
	defer srv.Close()

	p := write(t, "paper.url", []byte("https://arxiv.org/abs/1706.03762\n"))
	got, err := New(WithArxivBaseURL(srv.URL), WithHTTPClient(srv.Client())).ReadArticle(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if requested != "/pdf/1706.03762" {
		t.Errorf("requested %q", requested)
	}
	if !strings.Contains(got, "Attention is all you need") {
		t.Errorf("got %q", got)
	}
}

func TestReadArticle_ArxivNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := write(t, "paper.url", []byte("https://arxiv.org/pdf/0000.00000"))
	_, err := New(WithArxivBaseURL(srv.URL)).ReadArticle(context.Background(), p)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("err = %v", err)
	}
}

func TestReadArticle_ArxivTooLarge(t *testing.T) {
	pdf := pdftest.Build(pdftest.Info{}, "Attention is all you need")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdf)
	}))
	defer srv.Close()

	p := write(t, "paper.url", []byte("https://arxiv.org/abs/1706.03762"))
	_, err := New(WithArxivBaseURL(srv.URL), WithMaxDownloadBytes(int64(len(pdf)-1))).ReadArticle(context.Background(), p)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}

	// A body of exactly the limit is accepted.
	got, err := New(WithArxivBaseURL(srv.URL), WithMaxDownloadBytes(int64(len(pdf)))).ReadArticle(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Attention is all you need") {
		t.Errorf("got %q", got)
	}
}

func TestArxivID(t *testing.T) {
	tests := []struct {
		in, want string
		err      bool
	}{
		{"https://arxiv.org/abs/1706.03762", "1706.03762", false},
		{"https://arxiv.org/pdf/1706.03762v5.pdf", "1706.03762v5", false},
		{"[InternetShortcut]\nURL=https://arxiv.org/abs/2101.00001\n", "2101.00001", false},
		{"https://arxiv.org/abs/hep-th/9901001", "hep-th/9901001", false},
		{"ftp://arxiv.org/abs/1", "", true},
		{"not a link", "", true},
		{"https://arxiv.org/", "", true},
	}
	for _, tt := range tests {
		got, err := ArxivID(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ArxivID(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.err && got != tt.want {
			t.Errorf("ArxivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if tt.err && !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ArxivID(%q) err = %v, want ErrInvalidURL", tt.in, err)
		}
	}
}
