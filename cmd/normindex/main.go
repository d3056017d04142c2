// Command normindex is the offline single writer for the norm store: it merges
// freshly extracted norms into a collection and rebuilds vector indexes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/normrag/internal/logger"
	"github.com/kailas-cloud/normrag/internal/version"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const (
	kindText  = "text"
	kindTable = "table"
)

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	logger, err := logpkg.NewLogger("cli")
	if err != nil {
		fmt.Fprintf(stderr, "create logger: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	switch args[0] {
	case "merge":
		err = runMerge(args[1:], stderr, logger)
	case "rebuild":
		err = runRebuild(ctx, args[1:], stderr, logger)
	case "version":
		fmt.Fprintf(stderr, "normindex %s\n", version.String())
		return exitOK
	case "-h", "-help", "--help", "help":
		usage(stderr)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return exitUsage
	default:
		logger.Error("Command failed", zap.String("command", args[0]), zap.Error(err))
		return exitError
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage:
  normindex merge   -kind text|table -into FILE -from GLOB [-from GLOB ...]
  normindex rebuild -kind text|table [-norms FILE] [-index FILE]
  normindex version
`)
}

func validKind(k string) error {
	switch k {
	case kindText, kindTable:
		return nil
	default:
		return fmt.Errorf("%w: -kind must be %q or %q, got %q", errUsage, kindText, kindTable, k)
	}
}

// globList collects repeated -from flags.
type globList []string

func (g *globList) String() string { return fmt.Sprint([]string(*g)) }

func (g *globList) Set(v string) error {
	*g = append(*g, v)
	return nil
}
