package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiy/signed-memory/internal/admin"
	"github.com/xiy/signed-memory/internal/config"
	"github.com/xiy/signed-memory/internal/keys"
	"github.com/xiy/signed-memory/internal/memory"
	"github.com/xiy/signed-memory/internal/store"
)

var errVerificationFailed = errors.New("one or more journal entries failed verification")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "inspect":
		if err := runInspect(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "admin":
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Println("signed-memory v0.1.0")
	default:
		usage()
		os.Exit(2)
	}
}

type commonFlags struct {
	configPath string
	publicKey  string
}

func parseCommon(name string, args []string) (commonFlags, error) {
	var cf commonFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cf.configPath, "config", "config/signed-memory.yaml", "Path to config file")
	fs.StringVar(&cf.publicKey, "public-key", "", "Hex encoded Ed25519 public key the journal was signed for")
	if err := fs.Parse(args); err != nil {
		return cf, err
	}
	if strings.TrimSpace(cf.publicKey) == "" {
		return cf, errors.New("--public-key is required")
	}
	return cf, nil
}

func openJournal(ctx context.Context, cf commonFlags) (store.Journal, *log.Logger, error) {
	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportCaller: false, Prefix: cfg.Name})
	setLogLevel(logger, cfg.LogLevel)

	j, err := store.Open(ctx, cfg.JournalBackend, cfg.JournalPath(), logger)
	if err != nil {
		return nil, nil, err
	}
	return j, logger, nil
}

func runInspect(args []string, out io.Writer) error {
	cf, err := parseCommon("inspect", args)
	if err != nil {
		return err
	}
	pub, err := keys.ParsePublicKey(cf.publicKey)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	j, logger, err := openJournal(ctx, cf)
	if err != nil {
		return err
	}
	defer j.Close()

	rep, err := memory.Audit(ctx, j, pub)
	if err != nil {
		return err
	}
	for _, e := range rep.Entries {
		status, detail := "ok ", e.Content
		if !e.Verified {
			status, detail = "BAD", e.Reason
		}
		created := "-"
		if !e.CreatedAt.IsZero() {
			created = e.CreatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(out, "%s %s %s %s\n", status, e.ID, created, truncate(detail, 80))
	}
	fmt.Fprintf(out, "journal=%s entries=%d verified=%d rejected=%d undecodable=%d\n",
		rep.Path, len(rep.Entries), rep.Verified, rep.Rejected, rep.Skipped)

	if rep.Rejected > 0 {
		logger.Warn("journal verification failed", "rejected", rep.Rejected)
		return errVerificationFailed
	}
	return nil
}

func runAdmin(args []string) error {
	cf, err := parseCommon("admin", args)
	if err != nil {
		return err
	}
	pub, err := keys.ParsePublicKey(cf.publicKey)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	j, _, err := openJournal(ctx, cf)
	if err != nil {
		return err
	}
	defer j.Close()

	return admin.Run(ctx, func(ctx context.Context) (memory.AuditReport, error) {
		return memory.Audit(ctx, j, pub)
	})
}

func setLogLevel(logger *log.Logger, level string) {
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func usage() {
	fmt.Print(`signed-memory

Usage:
  signed-memory inspect --public-key hex [--config path]
  signed-memory admin --public-key hex [--config path]
  signed-memory version
`)
}
