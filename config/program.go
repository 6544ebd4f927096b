package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	rewards "azorion/native/taskrewards"
)

// Program is the genesis configuration of a task-reward program.
type Program struct {
	// InitialSupply is expressed in catalogue units; the engine scales it by
	// the base reward multiplier.
	InitialSupply uint64 `toml:"InitialSupply"`
	MinTasks      uint8  `toml:"MinTasks"`
	MaxTasks      uint8  `toml:"MaxTasks"`
	Authority     string `toml:"Authority"`
	// Custody defaults to Authority when empty.
	Custody string `toml:"Custody,omitempty"`
	// ClaimantEstimate is the static active-claimant estimate. Omitting it
	// keeps the default; an explicit 0 is honoured.
	ClaimantEstimate uint64 `toml:"ClaimantEstimate"`
}

// DefaultProgram returns a program with the historical defaults and no
// authority.
func DefaultProgram() *Program {
	return &Program{
		InitialSupply:    1000,
		MinTasks:         2,
		MaxTasks:         10,
		ClaimantEstimate: rewards.DefaultClaimantEstimate,
	}
}

// LoadProgram decodes and validates the genesis file at path.
func LoadProgram(path string) (*Program, error) {
	cfg := DefaultProgram()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("genesis %s: unknown field %s", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("genesis %s: %w", path, err)
	}
	return cfg, nil
}

// WriteProgram persists cfg to path, creating parent directories.
func WriteProgram(path string, cfg *Program) error {
	if cfg == nil {
		return errors.New("genesis: nil program")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return persist(path, cfg)
}

// Validate checks the genesis parameters.
func (p *Program) Validate() error {
	if p == nil {
		return errors.New("genesis: nil program")
	}
	if p.MinTasks > p.MaxTasks {
		return fmt.Errorf("genesis: MinTasks %d exceeds MaxTasks %d: %w", p.MinTasks, p.MaxTasks, rewards.ErrMaxTasksExceeded)
	}
	if strings.TrimSpace(p.Authority) == "" {
		return errors.New("genesis: Authority is required")
	}
	authority, err := rewards.ParseIdentity(p.Authority)
	if err != nil {
		return fmt.Errorf("genesis: Authority: %w", err)
	}
	if authority.IsZero() {
		return errors.New("genesis: Authority must not be the zero identity")
	}
	if strings.TrimSpace(p.Custody) != "" {
		if _, err := rewards.ParseIdentity(p.Custody); err != nil {
			return fmt.Errorf("genesis: Custody: %w", err)
		}
	}
	if p.InitialSupply > ^uint64(0)/rewards.BaseRewardMultiplier {
		return fmt.Errorf("genesis: InitialSupply %d: %w", p.InitialSupply, rewards.ErrSupplyOverflow)
	}
	return nil
}

// InitParams converts the genesis file into engine parameters.
func (p *Program) InitParams(now int64) (rewards.InitParams, error) {
	if err := p.Validate(); err != nil {
		return rewards.InitParams{}, err
	}
	authority, _ := rewards.ParseIdentity(p.Authority)
	params := rewards.InitParams{
		InitialSupply: p.InitialSupply,
		MinTasks:      p.MinTasks,
		MaxTasks:      p.MaxTasks,
		Authority:     authority,
		Now:           now,
	}
	if strings.TrimSpace(p.Custody) != "" {
		params.Custody, _ = rewards.ParseIdentity(p.Custody)
	}
	return params, nil
}

// Estimator returns the configured static claimant estimate.
func (p *Program) Estimator() rewards.StaticEstimate {
	if p == nil {
		return rewards.StaticEstimate(rewards.DefaultClaimantEstimate)
	}
	return rewards.StaticEstimate(p.ClaimantEstimate)
}

func persist(path string, cfg any) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
