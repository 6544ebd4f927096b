package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var apiEndpoint = defaultAPIEndpoint() // Overridden via REWARDD_URL or --api
var apiToken = os.Getenv("REWARDD_TOKEN")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		fmt.Fprint(stderr, usage())
		return 1
	}

	command, rest := args[0], args[1:]
	switch command {
	case "generate-key":
		return runGenerateKey(rest, stdout, stderr)
	case "address":
		return runAddress(rest, stdout, stderr)
	case "genesis":
		return runGenesis(rest, stdout, stderr)
	case "token":
		return runToken(rest, stdout, stderr)
	case "activities":
		return runGet("/v1/activities", stdout, stderr)
	case "program":
		return runGet("/v1/program", stdout, stderr)
	case "user":
		if len(rest) < 1 {
			fmt.Fprintln(stderr, "Error: Please provide an identity.")
			return 1
		}
		return runGet("/v1/users/"+strings.TrimSpace(rest[0]), stdout, stderr)
	case "claim":
		return runClaim(rest, stdout, stderr)
	case "receipts":
		return runReceipts(rest, stdout, stderr)
	case "export":
		return runExport(rest, stdout, stderr)
	case "randomize":
		return runPost("/v1/tasks/randomize", nil, stdout, stderr)
	case "pause":
		return runPost("/v1/admin/pause", nil, stdout, stderr)
	case "resume":
		return runPost("/v1/admin/resume", nil, stdout, stderr)
	case "status":
		return runGet("/v1/admin/status", stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		fmt.Fprint(stderr, usage())
		return 1
	}
}

func defaultAPIEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("REWARDD_URL")); v != "" {
		return v
	}
	return "http://localhost:7090"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--api" || arg == "--token":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", arg)
			}
			if arg == "--api" {
				apiEndpoint = args[i+1]
			} else {
				apiToken = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "--api="):
			apiEndpoint = strings.TrimPrefix(arg, "--api=")
		case strings.HasPrefix(arg, "--token="):
			apiToken = strings.TrimPrefix(arg, "--token=")
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

func usage() string {
	builder := &strings.Builder{}
	fmt.Fprintln(builder, "Usage: azorion-cli [--api URL] [--token JWT] <command> [arguments]")
	fmt.Fprintln(builder, "Commands:")
	fmt.Fprintln(builder, "  generate-key [--out path]            Create an encrypted authority keystore")
	fmt.Fprintln(builder, "  address --keystore path              Print the identity held by a keystore")
	fmt.Fprintln(builder, "  genesis --keystore path [options]    Write a program genesis file")
	fmt.Fprintln(builder, "  token --secret s --subject id        Mint an API bearer token")
	fmt.Fprintln(builder, "  activities                           List the activity catalogue")
	fmt.Fprintln(builder, "  program                              Show the program state")
	fmt.Fprintln(builder, "  user <identity>                      Show a claimant record")
	fmt.Fprintln(builder, "  claim --claimant id --activity name  Submit a claim")
	fmt.Fprintln(builder, "  receipts --claimant id               List signed claim receipts")
	fmt.Fprintln(builder, "  export [--format csv|parquet] --out  Export receipts")
	fmt.Fprintln(builder, "  randomize                            Refresh the available task count")
	fmt.Fprintln(builder, "  pause | resume | status              Processor controls")
	return builder.String()
}
