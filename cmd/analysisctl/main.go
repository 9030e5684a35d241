package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"savedanalysis/internal/gateway/app"
	"savedanalysis/internal/gateway/config"
	"savedanalysis/internal/gateway/service/loader"
	"savedanalysis/internal/schema"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

const usage = `usage: analysisctl <command> [flags]

commands:
  upgrade [-w] [-o out] <file>    rewrite a legacy saved analysis in the current shape
  compare <current> <benchmark>   print whether current predates benchmark
  migrate [-id id]                migrate stored analyses (uses ANALYSIS_* env)
  version                         print the build version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "upgrade":
		return runUpgrade(args[1:], stdin, stdout, stderr)
	case "compare":
		return runCompare(args[1:], stdout, stderr)
	case "migrate":
		return runMigrate(ctx, args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "analysisctl %s\n", version)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func runUpgrade(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("upgrade", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inPlace := fs.Bool("w", false, "write the result back to the input file")
	outPath := fs.String("o", "", "write the result to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "upgrade: exactly one input file is required (use - for stdin)")
		return 2
	}
	in := fs.Arg(0)
	if *inPlace && (in == "-" || *outPath != "") {
		fmt.Fprintln(stderr, "upgrade: -w needs a file argument and cannot be combined with -o")
		return 2
	}

	raw, err := readInput(in, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "upgrade: %v\n", err)
		return 1
	}
	out, upgraded, err := loader.UpgradeBytes(raw)
	if err != nil {
		fmt.Fprintf(stderr, "upgrade %s: %v\n", in, err)
		return 1
	}

	switch {
	case *inPlace:
		if !upgraded {
			fmt.Fprintf(stderr, "%s: already in the current format\n", in)
			return 0
		}
		err = writeFile(in, out)
	case *outPath != "":
		err = writeFile(*outPath, out)
	default:
		_, err = fmt.Fprintf(stdout, "%s\n", out)
	}
	if err != nil {
		fmt.Fprintf(stderr, "upgrade: %v\n", err)
		return 1
	}
	return 0
}

func runCompare(args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "compare: usage: compare <current> <benchmark>")
		return 2
	}
	prev, err := schema.IsPrevVersion(args[0], args[1])
	if err != nil {
		fmt.Fprintf(stderr, "compare: %v\n", err)
		return 2
	}
	fmt.Fprintln(stdout, prev)
	return 0
}

func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.String("id", "", "migrate only this analysis")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "migrate: invalid config: %v\n", err)
		return 1
	}
	store, closer, err := app.OpenStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Printf("close analysis store: %v", err)
		}
	}()
	svc, err := loader.New(store, cfg.AppVersion)
	if err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	return migrate(ctx, svc, *id, stdout, stderr)
}

func migrate(ctx context.Context, svc *loader.Service, id string, stdout, stderr io.Writer) int {
	if id != "" {
		res, err := svc.Migrate(ctx, id)
		if err != nil {
			fmt.Fprintf(stderr, "migrate: %v\n", err)
			return 1
		}
		state := "unchanged"
		if res.Changed() {
			state = "migrated"
		}
		fmt.Fprintf(stdout, "%s\t%s\n", res.ID, state)
		return 0
	}

	report, err := svc.MigrateAll(ctx)
	for _, mid := range report.Migrated {
		fmt.Fprintf(stdout, "%s\tmigrated\n", mid)
	}
	for _, uid := range report.Unchanged {
		fmt.Fprintf(stdout, "%s\tunchanged\n", uid)
	}
	failed := make([]string, 0, len(report.Failed))
	for fid := range report.Failed {
		failed = append(failed, fid)
	}
	sort.Strings(failed)
	for _, fid := range failed {
		fmt.Fprintf(stdout, "%s\tfailed\t%v\n", fid, report.Failed[fid])
	}
	if err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	fmt.Fprintf(stderr, "%d migrated, %d unchanged, %d failed\n", len(report.Migrated), len(report.Unchanged), len(report.Failed))
	if len(report.Failed) > 0 {
		return 1
	}
	return 0
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: no such file", path)
		}
		return nil, err
	}
	return b, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
