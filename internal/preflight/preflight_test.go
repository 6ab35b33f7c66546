package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"sopgen/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("free", dir, 1); !result.Passed {
		t.Fatalf("expected pass with 1 byte floor, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("free", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure with impossible floor")
	}
	if result := CheckFreeSpace("free", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckCredential(t *testing.T) {
	if r := CheckCredential("key", "secret", "hint", false); !r.Passed || r.Detail != "configured" {
		t.Fatalf("unexpected result %#v", r)
	}
	if r := CheckCredential("key", "", "hint", false); r.Passed {
		t.Fatal("expected missing required key to fail")
	}
	if r := CheckCredential("key", "", "hint", true); !r.Passed || !r.Optional {
		t.Fatalf("expected optional key to pass, got %#v", r)
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	settings := config.Default().LLM
	settings.BaseURL = srv.URL
	settings.APIKey = "good-key"
	result := CheckLLM(context.Background(), settings)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	settings := config.Default().LLM
	settings.BaseURL = srv.URL
	settings.APIKey = "bad-key"
	result := CheckLLM(context.Background(), settings)
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if result.Detail != "auth failed (invalid api key)" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), config.LLM{})
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "key"
	cfg.Transcription.Enabled = false
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.ScratchDir = t.TempDir()

	results := RunAll(context.Background(), &cfg, Options{})
	// key + output + scratch access + scratch free space
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if Failed(results) {
		t.Fatal("expected no failures")
	}
}

func TestRunAll_MissingKeyFails(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""
	cfg.Transcription.APIKey = ""
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.ScratchDir = t.TempDir()

	results := RunAll(context.Background(), &cfg, Options{})
	if !Failed(results) {
		t.Fatal("expected missing generation key to fail preflight")
	}
	for _, r := range results {
		if r.Name == "Transcription API key" && (!r.Passed || !r.Optional) {
			t.Fatalf("transcription key should be optional, got %#v", r)
		}
	}
}
