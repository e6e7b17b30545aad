package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const fixtureHTML = `<html><body>
<h1>Gopher habitats and behaviour</h1>
<p>Gophers are burrowing rodents found across North America, known for extensive tunnel systems.</p>
<p>Completely unrelated paragraph about medieval castles and their architecture throughout Europe.</p>
<li>Pocket gophers store food in cheek pouches while digging their burrows underground.</li>
<p>short</p>
</body></html>`

func TestFetchExtractsMatchingSnippets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			t.Error("query parameter not propagated")
		}
		_, _ = w.Write([]byte(fixtureHTML))
	}))
	defer srv.Close()

	g := New(&Config{
		Endpoints:        []string{srv.URL + "/search?q=%s"},
		MaxSnippets:      5,
		MinSnippetLength: 20,
	})

	snippets, err := g.Fetch(context.Background(), "gopher burrows")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected snippets")
	}
	for _, s := range snippets {
		lower := strings.ToLower(s)
		if !strings.Contains(lower, "gopher") && !strings.Contains(lower, "burrow") {
			t.Errorf("snippet does not match the query terms: %q", s)
		}
	}
}

func TestFetchCapsSnippets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 0; i < 10; i++ {
			b.WriteString("<p>A relevant paragraph mentioning gophers and their burrows in detail.</p>")
		}
		b.WriteString("</body></html>")
		_, _ = w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	g := New(&Config{
		Endpoints:        []string{srv.URL + "?q=%s"},
		MaxSnippets:      3,
		MinSnippetLength: 20,
	})

	snippets, err := g.Fetch(context.Background(), "gophers")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(snippets) != 3 {
		t.Errorf("expected the snippet cap to apply, got %d", len(snippets))
	}
}

func TestFetchNoEndpoints(t *testing.T) {
	g := New(DefaultConfig())
	if _, err := g.Fetch(context.Background(), "anything"); err == nil {
		t.Error("expected error with no endpoints configured")
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := New(&Config{Endpoints: []string{srv.URL + "?q=%s"}})
	if _, err := g.Fetch(context.Background(), "anything"); err == nil {
		t.Error("expected error when every endpoint fails")
	}
}
