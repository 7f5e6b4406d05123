package filefilters

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"easel/internal/config"
	"easel/internal/services"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func defaultShape() config.Filters {
	return config.Filters{
		MinLinesCode:          10,
		MaxFilesCode:          5,
		MaxAssets:             5,
		MaxLinesCode:          1000,
		MaxLinesStyle:         2000,
		RequireMoreThanReadme: true,
	}
}

func lines(n int) string {
	return strings.Repeat("line\n", n)
}

func TestRepoShapeAccepts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", lines(30))
	writeFile(t, root, "about.md", lines(10))
	writeFile(t, root, "style.css", lines(40))
	writeFile(t, root, "LICENSE.md", lines(500))

	keep, info, err := NewRepoShape(defaultShape()).Filter(root)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if !keep {
		t.Fatalf("repo rejected, info = %v", info)
	}
	if info["num_files"] != 2 {
		t.Errorf("num_files = %v (special files must not count)", info["num_files"])
	}
	if info["num_lines"] != 40 {
		t.Errorf("num_lines = %v", info["num_lines"])
	}
	if info["only_contains_readme"] != false {
		t.Errorf("only_contains_readme = %v", info["only_contains_readme"])
	}
}

func TestRepoShapeRejects(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T, root string)
	}{
		{"no code", func(t *testing.T, root string) {
			writeFile(t, root, "logo.png", "binary")
		}},
		{"too few lines", func(t *testing.T, root string) {
			writeFile(t, root, "index.html", lines(3))
		}},
		{"too many code lines", func(t *testing.T, root string) {
			writeFile(t, root, "index.html", lines(1500))
		}},
		{"too many code files", func(t *testing.T, root string) {
			for i := 0; i < 6; i++ {
				writeFile(t, root, fmt.Sprintf("p%d.html", i), lines(5))
			}
		}},
		{"too many assets", func(t *testing.T, root string) {
			writeFile(t, root, "index.html", lines(30))
			for i := 0; i < 6; i++ {
				writeFile(t, root, fmt.Sprintf("img%d.png", i), "x")
			}
		}},
		{"only readme", func(t *testing.T, root string) {
			writeFile(t, root, "README.md", lines(30))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			tc.setup(t, root)
			keep, _, err := NewRepoShape(defaultShape()).Filter(root)
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			if keep {
				t.Errorf("repo kept")
			}
		})
	}
}

func TestRepoShapeOnlyReadmeInfo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", lines(30))

	cfg := defaultShape()
	cfg.RequireMoreThanReadme = false
	keep, info, err := NewRepoShape(cfg).Filter(root)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if !keep {
		t.Errorf("readme-only repo rejected despite relaxed config")
	}
	if info["only_contains_readme"] != true {
		t.Errorf("only_contains_readme = %v", info["only_contains_readme"])
	}
}

func analyzerResponse(toxicity, explicit float64) string {
	return fmt.Sprintf(`{"attributeScores": {
		"TOXICITY": {"summaryScore": {"value": %f}},
		"SEXUALLY_EXPLICIT": {"summaryScore": {"value": %f}}
	}}`, toxicity, explicit)
}

func toxicityFilter(endpoint string) *Toxicity {
	return NewToxicity(config.Toxicity{
		Enabled:                   true,
		APIKey:                    "key",
		Endpoint:                  endpoint,
		ToxicityThreshold:         0.5,
		SexuallyExplicitThreshold: 0.3,
	})
}

func TestToxicityAcceptsLowScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, analyzerResponse(0.1, 0.05))
	}))
	defer server.Close()

	root := t.TempDir()
	writeFile(t, root, "index.html", "hello world\n")

	keep, info, err := toxicityFilter(server.URL).Filter(root)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if !keep {
		t.Errorf("clean instance rejected")
	}
	if info["toxicity"] != 0.1 {
		t.Errorf("toxicity = %v", info["toxicity"])
	}
}

func TestToxicityRejectsHighScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, analyzerResponse(0.9, 0.05))
	}))
	defer server.Close()

	root := t.TempDir()
	writeFile(t, root, "index.html", "bad content\n")

	keep, _, err := toxicityFilter(server.URL).Filter(root)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if keep {
		t.Errorf("toxic instance kept")
	}
}

func TestToxicityOutageIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	root := t.TempDir()
	writeFile(t, root, "index.html", "some content\n")

	_, _, err := toxicityFilter(server.URL).Filter(root)
	if !errors.Is(err, services.ErrFilter) {
		t.Fatalf("err = %v, want ErrFilter", err)
	}
}

func TestToxicitySkipsEmptyInstance(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "logo.png", "binary")

	keep, info, err := toxicityFilter("http://127.0.0.1:1").Filter(root)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if !keep {
		t.Errorf("textless instance rejected")
	}
	if info["analyzed"] != false {
		t.Errorf("analyzed = %v", info["analyzed"])
	}
}
