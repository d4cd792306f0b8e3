// Command tempmail mints disposable addresses and reads their mail from the
// terminal, or serves the browser front-end.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	tempmail "github.com/tempmailkit/tempmail-go"
	"github.com/tempmailkit/tempmail-go/internal/config"
	"github.com/tempmailkit/tempmail-go/internal/logger"
	"github.com/tempmailkit/tempmail-go/internal/monitoring"
	"github.com/tempmailkit/tempmail-go/internal/web"
)

const usage = `usage: tempmail <command> [flags]

commands:
  domains                                list available domains
  new [--domain D] [--name N] [--length L] [--watch]
                                         generate an address, optionally wait for mail
  check --address A                      fetch the messages of an address once
  watch --address A                      poll an address until mail arrives
  serve                                  run the web front-end

common flags: --api-url, --timeout, --log-level, --config`

var (
	errNoDomains       = errors.New("no domains available, please try again later")
	errAddressRequired = errors.New("--address is required")
)

// Config holds the process streams.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns the standard streams.
func DefaultConfig() Config {
	return Config{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// env is what every command needs.
type env struct {
	cfg    *config.Config
	client *tempmail.Client
	logger *zap.Logger
	out    io.Writer
}

func run(args []string, c Config) error {
	if len(args) < 2 {
		return errors.New(usage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := args[1]
	fs := pflag.NewFlagSet("tempmail "+cmd, pflag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	config.RegisterFlags(fs)

	switch cmd {
	case "domains":
		return withEnv(fs, args[2:], c, false, func(e *env) error { return listDomains(ctx, e) })
	case "new":
		domain := fs.String("domain", "", "domain for the address (default: first listed)")
		name := fs.String("name", "", "custom local-part (letters, digits, _ or -)")
		length := fs.Int("length", 0, "length of a random local-part, 4 to 20")
		watch := fs.Bool("watch", false, "poll for messages after generating")
		return withEnv(fs, args[2:], c, false, func(e *env) error {
			n := e.cfg.Name.Length
			if fs.Changed("length") {
				n = *length
			}
			return newAddress(ctx, e, *domain, *name, n, *watch)
		})
	case "check":
		address := fs.String("address", "", "address to check")
		return withEnv(fs, args[2:], c, false, func(e *env) error { return checkAddress(ctx, e, *address) })
	case "watch":
		address := fs.String("address", "", "address to poll")
		return withEnv(fs, args[2:], c, false, func(e *env) error { return watchAddress(ctx, e, *address) })
	case "serve":
		return withEnv(fs, args[2:], c, true, func(e *env) error { return serve(ctx, e) })
	case "help", "-h", "--help":
		fmt.Fprintln(c.Stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\n%s", cmd, usage)
	}
}

// withEnv parses flags, loads configuration and builds the client.
func withEnv(fs *pflag.FlagSet, args []string, c Config, metrics bool, fn func(*env) error) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		Output:      c.Stderr,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	opts := []tempmail.Option{
		tempmail.WithTimeout(cfg.API.Timeout),
		tempmail.WithRetries(cfg.API.Retries),
		tempmail.WithRetryDelay(cfg.API.RetryDelay),
		tempmail.WithRateLimit(cfg.API.RateLimit),
		tempmail.WithDomainCacheTTL(cfg.Domains.CacheTTL),
		tempmail.WithLogger(log),
	}
	if metrics && cfg.Web.Metrics {
		opts = append(opts, tempmail.WithMetrics(monitoring.NewMetrics()))
	}
	client, err := tempmail.New(cfg.API.BaseURL, opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	return fn(&env{cfg: cfg, client: client, logger: log, out: c.Stdout})
}

// sessionOptions maps the configuration onto a session.
func (e *env) sessionOptions(extra ...tempmail.SessionOption) []tempmail.SessionOption {
	opts := []tempmail.SessionOption{
		tempmail.WithMaxAttempts(e.cfg.Polling.MaxAttempts),
		tempmail.WithPollInterval(e.cfg.Polling.Interval),
		tempmail.WithNameLength(e.cfg.Name.Length),
	}
	return append(opts, extra...)
}

// printer writes notices as they arrive.
func (e *env) printer() tempmail.Notifier {
	return tempmail.NotifierFunc(func(n tempmail.Notice) {
		fmt.Fprintln(e.out, n.Text)
	})
}

func listDomains(ctx context.Context, e *env) error {
	domains, err := e.client.ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("fetch domains: %w", err)
	}
	if len(domains) == 0 {
		return errNoDomains
	}

	table := newTable(e.out, "#", "Domain")
	for i, d := range domains {
		table.Append([]string{strconv.Itoa(i + 1), d.Name})
	}
	table.Render()
	return nil
}

func newAddress(ctx context.Context, e *env, domain, name string, length int, watch bool) error {
	session := tempmail.NewSession(e.client, e.sessionOptions(
		tempmail.WithNameLength(length),
		tempmail.WithNotifier(e.printer()),
	)...)
	defer session.Close()

	if domain == "" {
		domains := session.Domains(ctx)
		if len(domains) == 0 {
			return errNoDomains
		}
		domain = tempmail.PreferredDomain(domains, "")
	}

	if _, err := session.Generate(ctx, domain, name); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return pollAndPrint(ctx, e, session)
}

func checkAddress(ctx context.Context, e *env, address string) error {
	if address == "" {
		return errAddressRequired
	}
	messages, err := e.client.CheckMessages(ctx, address)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}
	if len(messages) == 0 {
		fmt.Fprintln(e.out, "No new messages found.")
		return nil
	}
	printMessages(e.out, messages)
	return nil
}

func watchAddress(ctx context.Context, e *env, address string) error {
	if address == "" {
		return errAddressRequired
	}
	session := tempmail.NewSession(e.client, e.sessionOptions(
		tempmail.WithAddress(address),
		tempmail.WithNotifier(e.printer()),
	)...)
	defer session.Close()
	return pollAndPrint(ctx, e, session)
}

func pollAndPrint(ctx context.Context, e *env, session *tempmail.Session) error {
	if err := session.Poll(ctx); err != nil {
		return err
	}
	if snap := session.Snapshot(); len(snap.Messages) > 0 {
		printMessages(e.out, snap.Messages)
	}
	return nil
}

func serve(ctx context.Context, e *env) error {
	srv := web.New(e.client, web.Config{
		Addr:           e.cfg.Web.Addr,
		AllowedOrigins: e.cfg.Web.AllowedOrigins,
		SessionIdle:    e.cfg.Web.SessionIdle,
		Metrics:        e.cfg.Web.Metrics,
		HealthTimeout:  e.cfg.API.Timeout,
	}, e.logger, e.sessionOptions()...)
	return srv.Run(ctx)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	return table
}

func printMessages(w io.Writer, messages []tempmail.Message) {
	table := newTable(w, "#", "From", "Subject", "Body")
	for i, m := range messages {
		table.Append([]string{strconv.Itoa(i + 1), m.From, m.Subject, preview(m.BodyText, 60)})
	}
	table.Render()
}

// preview flattens body to one line of at most n runes.
func preview(body string, n int) string {
	flat := strings.Join(strings.Fields(body), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n-1]) + "…"
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
