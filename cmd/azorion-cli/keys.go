package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"azorion/cmd/internal/passphrase"
	"azorion/config"
	"azorion/crypto"
	rewards "azorion/native/taskrewards"
	"azorion/services/rewardd"
)

const keystorePassphraseEnv = "REWARDD_KEYSTORE_PASSPHRASE"

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("generate-key", stderr)
	out := fs.String("out", "authority.keystore", "keystore output path")
	passEnv := fs.String("passphrase-env", keystorePassphraseEnv, "environment variable holding the passphrase")
	lightKDF := fs.Bool("light-kdf", false, "use light scrypt parameters (development keys only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	pass, err := passphrase.NewSource(*passEnv).Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error generating key: %v\n", err)
		return 1
	}
	params := crypto.StandardScrypt
	if *lightKDF {
		params = crypto.LightScrypt
	}
	if err := crypto.SaveToKeystoreWithParams(*out, key, pass, params); err != nil {
		fmt.Fprintf(stderr, "Error saving keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Generated new key and saved to %s\n", *out)
	fmt.Fprintf(stdout, "Identity: %s\n", key.PubKey().Address().String())
	return 0
}

func loadIdentity(path, passEnv string) (rewards.Identity, error) {
	pass, err := passphrase.NewSource(passEnv).Get()
	if err != nil {
		return rewards.Identity{}, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return rewards.Identity{}, fmt.Errorf("load keystore: %w", err)
	}
	return rewards.IdentityFromBytes(key.PubKey().Address().Bytes())
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("address", stderr)
	keystore := fs.String("keystore", "authority.keystore", "keystore path")
	passEnv := fs.String("passphrase-env", keystorePassphraseEnv, "environment variable holding the passphrase")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, err := loadIdentity(*keystore, *passEnv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, id.String())
	fmt.Fprintln(stdout, id.Hex())
	return 0
}

func runGenesis(args []string, stdout, stderr io.Writer) int {
	defaults := config.DefaultProgram()
	fs := newFlagSet("genesis", stderr)
	keystore := fs.String("keystore", "", "authority keystore path")
	authority := fs.String("authority", "", "authority identity (instead of --keystore)")
	custody := fs.String("custody", "", "custody identity; defaults to the authority")
	supply := fs.Uint64("supply", defaults.InitialSupply, "initial supply in catalogue units")
	minTasks := fs.Uint("min-tasks", uint(defaults.MinTasks), "minimum available tasks")
	maxTasks := fs.Uint("max-tasks", uint(defaults.MaxTasks), "maximum available tasks")
	estimate := fs.Uint64("claimants", defaults.ClaimantEstimate, "static active-claimant estimate")
	out := fs.String("out", "genesis.toml", "output path")
	passEnv := fs.String("passphrase-env", keystorePassphraseEnv, "environment variable holding the passphrase")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *minTasks > 255 || *maxTasks > 255 {
		fmt.Fprintln(stderr, "Error: task bounds must fit in 0..255")
		return 1
	}
	program := &config.Program{
		InitialSupply:    *supply,
		MinTasks:         uint8(*minTasks),
		MaxTasks:         uint8(*maxTasks),
		Authority:        strings.TrimSpace(*authority),
		Custody:          strings.TrimSpace(*custody),
		ClaimantEstimate: *estimate,
	}
	if program.Authority == "" {
		if strings.TrimSpace(*keystore) == "" {
			fmt.Fprintln(stderr, "Error: provide --keystore or --authority")
			return 1
		}
		id, err := loadIdentity(*keystore, *passEnv)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		program.Authority = id.Hex()
	}
	if err := config.WriteProgram(*out, program); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote genesis to %s\n", *out)
	return 0
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("token", stderr)
	secret := fs.String("secret", "", "HMAC secret shared with rewardd")
	subject := fs.String("subject", "", "token subject")
	issuer := fs.String("issuer", "", "token issuer")
	audience := fs.String("audience", "", "token audience")
	scopes := fs.String("scopes", rewardd.ScopeClaim, "space or comma separated scopes")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*secret) == "" || strings.TrimSpace(*subject) == "" {
		fmt.Fprintln(stderr, "Error: --secret and --subject are required")
		return 1
	}
	scopeList := strings.FieldsFunc(*scopes, func(r rune) bool { return r == ',' || r == ' ' })
	token, err := rewardd.IssueToken(*secret, *subject, *issuer, *audience, scopeList, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
