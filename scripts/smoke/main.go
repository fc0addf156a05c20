// Command smoke probes a running ClassTrack API instance and exits non-zero
// when any critical endpoint misbehaves. Meant for post-deploy checks.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type probe struct {
	Name     string
	Method   string
	Path     string
	Status   int
	Critical bool
}

var probes = []probe{
	{Name: "health", Method: http.MethodGet, Path: "/health", Status: http.StatusOK, Critical: true},
	{Name: "readiness", Method: http.MethodGet, Path: "/ready", Status: http.StatusOK, Critical: true},
	{Name: "metrics", Method: http.MethodGet, Path: "/metrics", Status: http.StatusOK, Critical: false},
	// Unauthenticated access must be rejected, not error out.
	{Name: "auth gate", Method: http.MethodGet, Path: "/api/v1/students", Status: http.StatusUnauthorized, Critical: true},
	{Name: "login validation", Method: http.MethodPost, Path: "/api/v1/auth/login", Status: http.StatusBadRequest, Critical: false},
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "API base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	failed := 0

	for _, p := range probes {
		status, took, err := run(client, *baseURL, p)
		switch {
		case err != nil:
			fmt.Printf("FAIL %-18s %s %s: %v\n", p.Name, p.Method, p.Path, err)
		case status != p.Status:
			fmt.Printf("FAIL %-18s %s %s: got %d, want %d (%s)\n", p.Name, p.Method, p.Path, status, p.Status, took)
		default:
			fmt.Printf("ok   %-18s %s %s: %d (%s)\n", p.Name, p.Method, p.Path, status, took)
			continue
		}
		if p.Critical {
			failed++
		}
	}

	if failed > 0 {
		fmt.Printf("%d critical probe(s) failed\n", failed)
		os.Exit(1)
	}
}

func run(client *http.Client, baseURL string, p probe) (int, time.Duration, error) {
	url := strings.TrimRight(baseURL, "/") + p.Path

	var body *strings.Reader
	if p.Method == http.MethodPost {
		raw, _ := json.Marshal(map[string]string{})
		body = strings.NewReader(string(raw))
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequest(p.Method, url, body)
	if err != nil {
		return 0, 0, err
	}
	if p.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	took := time.Since(start).Round(time.Millisecond)
	if err != nil {
		return 0, took, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, took, nil
}
