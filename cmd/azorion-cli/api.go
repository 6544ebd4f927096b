package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// apiCall performs a request against rewardd and returns the status and body.
var apiCall = func(method, path string, body []byte) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, strings.TrimRight(apiEndpoint, "/")+path, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(apiToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, err
	}
	return resp.StatusCode, resp.Header, data, nil
}

func runGet(path string, stdout, stderr io.Writer) int {
	return runRequest(http.MethodGet, path, nil, stdout, stderr)
}

func runPost(path string, payload any, stdout, stderr io.Writer) int {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(stderr, "Error encoding request: %v\n", err)
			return 1
		}
		body = encoded
	}
	return runRequest(http.MethodPost, path, body, stdout, stderr)
}

func runRequest(method, path string, body []byte, stdout, stderr io.Writer) int {
	status, _, data, err := apiCall(method, path, body)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if status >= http.StatusBadRequest {
		fmt.Fprintf(stderr, "Error: %s: %s\n", http.StatusText(status), strings.TrimSpace(string(data)))
		return 1
	}
	if len(bytes.TrimSpace(data)) == 0 {
		fmt.Fprintln(stdout, "OK")
		return 0
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, _ = stdout.Write(data)
		return 0
	}
	fmt.Fprintln(stdout, pretty.String())
	return 0
}

func runClaim(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("claim", stderr)
	claimant := fs.String("claimant", "", "claimant identity")
	activity := fs.String("activity", "", "activity name, key or ordinal")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*claimant) == "" || strings.TrimSpace(*activity) == "" {
		fmt.Fprintln(stderr, "Error: --claimant and --activity are required")
		return 1
	}
	return runPost("/v1/claims", map[string]string{
		"claimant": strings.TrimSpace(*claimant),
		"activity": *activity,
	}, stdout, stderr)
}

func runReceipts(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("receipts", stderr)
	claimant := fs.String("claimant", "", "claimant identity")
	limit := fs.Int("limit", 100, "maximum receipts")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*claimant) == "" {
		fmt.Fprintln(stderr, "Error: --claimant is required")
		return 1
	}
	query := url.Values{}
	query.Set("claimant", strings.TrimSpace(*claimant))
	query.Set("limit", fmt.Sprint(*limit))
	return runGet("/v1/claims?"+query.Encode(), stdout, stderr)
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("export", stderr)
	format := fs.String("format", "csv", "csv or parquet")
	from := fs.Int64("from", 0, "earliest claim time (unix seconds)")
	to := fs.Int64("to", 0, "latest claim time (unix seconds, 0 for open)")
	out := fs.String("out", "", "output file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*out) == "" {
		fmt.Fprintln(stderr, "Error: --out is required")
		return 1
	}
	query := url.Values{}
	query.Set("format", *format)
	query.Set("from", fmt.Sprint(*from))
	query.Set("to", fmt.Sprint(*to))
	status, header, data, err := apiCall(http.MethodGet, "/v1/claims/export?"+query.Encode(), nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if status >= http.StatusBadRequest {
		fmt.Fprintf(stderr, "Error: %s: %s\n", http.StatusText(status), strings.TrimSpace(string(data)))
		return 1
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		fmt.Fprintf(stderr, "Error writing %s: %v\n", *out, err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %d bytes to %s\n", len(data), *out)
	if checksum := header.Get("X-Checksum"); checksum != "" {
		fmt.Fprintf(stdout, "Checksum: %s\n", checksum)
	}
	return 0
}
