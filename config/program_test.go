package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	rewards "azorion/native/taskrewards"
)

var testAuthority = rewards.Identity{0x42, 0x24}

func TestWriteAndLoadProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "genesis.toml")
	cfg := DefaultProgram()
	cfg.Authority = testAuthority.String()
	if err := WriteProgram(path, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := LoadProgram(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *cfg {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, cfg)
	}
	params, err := loaded.InitParams(77)
	if err != nil {
		t.Fatalf("init params: %v", err)
	}
	if params.Authority != testAuthority || params.Custody != (rewards.Identity{}) || params.Now != 77 {
		t.Fatalf("unexpected params %+v", params)
	}
	if loaded.Estimator() != rewards.StaticEstimate(10) {
		t.Fatalf("unexpected estimator %v", loaded.Estimator())
	}
}

func TestLoadProgramAcceptsHexIdentities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.toml")
	contents := `InitialSupply = 5
MinTasks = 3
MaxTasks = 3
Authority = "` + testAuthority.Hex() + `"
Custody = "0x00000000000000000000000000000000000000ff"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadProgram(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	params, err := cfg.InitParams(0)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if params.Custody[19] != 0xff || params.MinTasks != 3 || params.InitialSupply != 5 {
		t.Fatalf("unexpected params %+v", params)
	}
}

func TestLoadProgramRejectsInvalidGenesis(t *testing.T) {
	cases := map[string]string{
		"bounds":    "MinTasks = 9\nMaxTasks = 2\nAuthority = \"" + testAuthority.Hex() + "\"\n",
		"authority": "MinTasks = 1\nMaxTasks = 2\n",
		"unknown":   "Authority = \"" + testAuthority.Hex() + "\"\nCooldown = 3\n",
		"overflow":  "InitialSupply = 18446744073709551615\nAuthority = \"" + testAuthority.Hex() + "\"\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "genesis.toml")
			if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := LoadProgram(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if name == "bounds" && !errors.Is(err, rewards.ErrMaxTasksExceeded) {
				t.Fatalf("expected ErrMaxTasksExceeded, got %v", err)
			}
			if name == "unknown" && !strings.Contains(err.Error(), "Cooldown") {
				t.Fatalf("expected unknown field error, got %v", err)
			}
		})
	}
}

func TestProgramEstimatorHonoursExplicitZero(t *testing.T) {
	dir := t.TempDir()
	base := "Authority = \"" + testAuthority.Hex() + "\"\n"

	omitted := filepath.Join(dir, "omitted.toml")
	if err := os.WriteFile(omitted, []byte(base), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadProgram(omitted)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Estimator() != rewards.StaticEstimate(rewards.DefaultClaimantEstimate) {
		t.Fatalf("omitted estimate should default, got %v", cfg.Estimator())
	}

	zero := filepath.Join(dir, "zero.toml")
	if err := os.WriteFile(zero, []byte(base+"ClaimantEstimate = 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = LoadProgram(zero)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Estimator() != rewards.StaticEstimate(0) {
		t.Fatalf("explicit zero estimate lost: %v", cfg.Estimator())
	}

	// A written zero survives the round trip.
	written := filepath.Join(dir, "written.toml")
	if err := WriteProgram(written, cfg); err != nil {
		t.Fatalf("write program: %v", err)
	}
	cfg, err = LoadProgram(written)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.ClaimantEstimate != 0 {
		t.Fatalf("round trip estimate %d", cfg.ClaimantEstimate)
	}
}
