// Command smoke probes a running instance and reports per-endpoint health.
// It is meant for post-deploy checks: critical target failures exit nonzero.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Name       string `json:"name"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	WantStatus int    `json:"want_status"`
	Critical   bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target   target
	Status   int
	Duration time.Duration
	Error    error
}

func main() {
	var (
		base        string
		token       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", "", "Bearer token for authenticated targets")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		probes   []probe
		breaking int
		soft     int
	)

	for _, t := range targets {
		p := probeTarget(client, base, token, t)
		if p.Error != nil || !statusOK(p) {
			if t.Critical {
				breaking++
			} else {
				soft++
			}
		}
		probes = append(probes, p)
	}

	printReport(probes)

	fmt.Printf("Critical failures: %d, Soft failures: %d\n", breaking, soft)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func probeTarget(client *http.Client, base, token string, tgt target) probe {
	p := probe{Target: tgt}
	resp, dur, err := performRequest(client, base, token, tgt)
	p.Duration = dur
	if err != nil {
		p.Error = err
		return p
	}
	defer resp.Body.Close() //nolint:errcheck

	// Drain so connections are reused across probes.
	_, _ = io.Copy(io.Discard, resp.Body)
	p.Status = resp.StatusCode
	return p
}

func statusOK(p probe) bool {
	want := p.Target.WantStatus
	if want == 0 {
		return p.Status >= 200 && p.Status < 300
	}
	return p.Status == want
}

func performRequest(client *http.Client, base, token string, tgt target) (*http.Response, time.Duration, error) {
	if client == nil {
		return nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	return resp, time.Since(start), err
}

func printReport(probes []probe) {
	for _, p := range probes {
		name := p.Target.Name
		if name == "" {
			name = p.Target.Method + " " + p.Target.Path
		}
		switch {
		case p.Error != nil:
			fmt.Printf("FAIL  %-40s error=%v\n", name, p.Error)
		case !statusOK(p):
			fmt.Printf("FAIL  %-40s status=%d want=%d in %s\n", name, p.Status, p.Target.WantStatus, p.Duration.Round(time.Millisecond))
		default:
			fmt.Printf("ok    %-40s status=%d in %s\n", name, p.Status, p.Duration.Round(time.Millisecond))
		}
	}
}
