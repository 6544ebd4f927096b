package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"azorion/config"
	"azorion/crypto"
	"azorion/services/rewardd"
)

func stubAPI(t *testing.T, fn func(method, path string, body []byte) (int, http.Header, []byte, error)) {
	t.Helper()
	original := apiCall
	apiCall = fn
	t.Cleanup(func() { apiCall = original })
}

func TestRunUnknownCommand(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if exit := run([]string{"frobnicate"}, stdout, stderr); exit != 1 {
		t.Fatalf("unexpected exit %d", exit)
	}
	if !strings.Contains(stderr.String(), "Unknown command: frobnicate") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestGlobalFlags(t *testing.T) {
	originalEndpoint, originalToken := apiEndpoint, apiToken
	defer func() { apiEndpoint, apiToken = originalEndpoint, originalToken }()

	rest, err := applyGlobalFlags([]string{"--api", "http://rewards:1", "program", "--token=abc"})
	if err != nil {
		t.Fatalf("flags: %v", err)
	}
	if len(rest) != 1 || rest[0] != "program" {
		t.Fatalf("unexpected remaining args %v", rest)
	}
	if apiEndpoint != "http://rewards:1" || apiToken != "abc" {
		t.Fatalf("unexpected globals %q %q", apiEndpoint, apiToken)
	}
	if _, err := applyGlobalFlags([]string{"--api"}); err == nil {
		t.Fatal("expected missing value error")
	}
}

func TestClaimSendsRequest(t *testing.T) {
	var captured map[string]string
	stubAPI(t, func(method, path string, body []byte) (int, http.Header, []byte, error) {
		if method != http.MethodPost || path != "/v1/claims" {
			t.Fatalf("unexpected call %s %s", method, path)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return http.StatusOK, http.Header{}, []byte(`{"reward":9000000}`), nil
	})
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	exit := run([]string{"claim", "--claimant", "0x00000000000000000000000000000000000000bb", "--activity", "check-in"}, stdout, stderr)
	if exit != 0 {
		t.Fatalf("unexpected exit %d: %s", exit, stderr.String())
	}
	if captured["activity"] != "check-in" || captured["claimant"] != "0x00000000000000000000000000000000000000bb" {
		t.Fatalf("unexpected payload %v", captured)
	}
	if !strings.Contains(stdout.String(), `"reward": 9000000`) {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
}

func TestClaimRequiresFlags(t *testing.T) {
	stubAPI(t, func(method, path string, body []byte) (int, http.Header, []byte, error) {
		t.Fatalf("unexpected call %s %s", method, path)
		return 0, nil, nil, nil
	})
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if exit := run([]string{"claim", "--activity", "check-in"}, stdout, stderr); exit != 1 {
		t.Fatalf("unexpected exit %d", exit)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected empty stdout, got %q", stdout.String())
	}
}

func TestErrorStatusIsReported(t *testing.T) {
	stubAPI(t, func(method, path string, body []byte) (int, http.Header, []byte, error) {
		return http.StatusTooManyRequests, http.Header{}, []byte(`{"error":"taskrewards: cooldown is active","code":6001}`), nil
	})
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if exit := run([]string{"randomize"}, stdout, stderr); exit != 1 {
		t.Fatalf("unexpected exit %d", exit)
	}
	if !strings.Contains(stderr.String(), "Too Many Requests") || !strings.Contains(stderr.String(), "6001") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestExportWritesFile(t *testing.T) {
	stubAPI(t, func(method, path string, body []byte) (int, http.Header, []byte, error) {
		if !strings.HasPrefix(path, "/v1/claims/export?") || !strings.Contains(path, "format=csv") {
			t.Fatalf("unexpected path %s", path)
		}
		header := http.Header{}
		header.Set("X-Checksum", "deadbeef")
		return http.StatusOK, header, []byte("id,claimant\n"), nil
	})
	out := filepath.Join(t.TempDir(), "receipts.csv")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if exit := run([]string{"export", "--out", out}, stdout, stderr); exit != 0 {
		t.Fatalf("unexpected exit %d: %s", exit, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "id,claimant\n" {
		t.Fatalf("unexpected export %q", data)
	}
	if !strings.Contains(stdout.String(), "Checksum: deadbeef") {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
}

func TestGenerateKeyAndGenesis(t *testing.T) {
	t.Setenv(keystorePassphraseEnv, "cli-test-passphrase")
	dir := t.TempDir()
	keystore := filepath.Join(dir, "authority.keystore")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if exit := run([]string{"generate-key", "--light-kdf", "--out", keystore}, stdout, stderr); exit != 0 {
		t.Fatalf("generate-key exit %d: %s", exit, stderr.String())
	}
	key, err := crypto.LoadFromKeystore(keystore, "cli-test-passphrase")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}

	genesisPath := filepath.Join(dir, "genesis.toml")
	stdout.Reset()
	if exit := run([]string{"genesis", "--keystore", keystore, "--supply", "500", "--min-tasks", "3", "--max-tasks", "12", "--out", genesisPath}, stdout, stderr); exit != 0 {
		t.Fatalf("genesis exit %d: %s", exit, stderr.String())
	}
	program, err := config.LoadProgram(genesisPath)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}
	params, err := program.InitParams(1)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if !bytes.Equal(params.Authority[:], key.PubKey().Address().Bytes()) {
		t.Fatalf("authority mismatch")
	}
	if program.InitialSupply != 500 || program.MinTasks != 3 || program.MaxTasks != 12 {
		t.Fatalf("unexpected program %+v", program)
	}
}

func TestGenesisRejectsInvertedBounds(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	out := filepath.Join(t.TempDir(), "genesis.toml")
	exit := run([]string{"genesis", "--authority", "0x00000000000000000000000000000000000000aa", "--min-tasks", "9", "--max-tasks", "2", "--out", out}, stdout, stderr)
	if exit != 1 {
		t.Fatalf("unexpected exit %d", exit)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("genesis file should not exist: %v", err)
	}
}

func TestTokenCommand(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	exit := run([]string{"token", "--secret", "s3cret", "--subject", "ops", "--scopes", rewardd.ScopeClaim + "," + rewardd.ScopeAdmin, "--ttl", "10m"}, stdout, stderr)
	if exit != 0 {
		t.Fatalf("unexpected exit %d: %s", exit, stderr.String())
	}
	raw := strings.TrimSpace(stdout.String())
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	if err != nil || !token.Valid {
		t.Fatalf("parse token: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != "ops" || claims["scope"] != rewardd.ScopeClaim+" "+rewardd.ScopeAdmin {
		t.Fatalf("unexpected claims %v", claims)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || time.Until(exp.Time) > 10*time.Minute {
		t.Fatalf("unexpected expiry %v %v", exp, err)
	}
}
