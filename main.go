package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"novafund/pkg/app"
	"novafund/pkg/config"
	"novafund/pkg/contract"
	"novafund/pkg/metrics"
	"novafund/pkg/notify"
	"novafund/pkg/server"
	"novafund/pkg/tui"
	"novafund/pkg/view"
	"novafund/pkg/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Version should be set during build
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	testFlag := flag.Bool("t", false, "Test configuration and exit")
	testLongFlag := flag.Bool("test", false, "Test configuration and exit")
	jsonFlag := flag.Bool("json", false, "Output test results as JSON")
	initFlag := flag.Bool("init", false, "Write the effective configuration to the config path and exit")
	configFlag := flag.String("config", "", "Path to configuration file (.json or .toml)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	tuiFlag := flag.Bool("tui", false, "Run the terminal dashboard next to the web server")
	addrFlag := flag.String("addr", "", "Listen address of the web server")
	logLevelFlag := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logJSONFlag := flag.Bool("log-json", false, "Write logs as JSON")
	logFileFlag := flag.String("log-file", "", "Write logs to this file instead of stderr")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("novafund version %s\n", Version)
		os.Exit(0)
	}

	cfgInput := *configFlag
	if cfgInput == "" && len(flag.Args()) > 0 {
		cfgInput = flag.Args()[0]
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		fmt.Printf("Error determining config path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		fmt.Printf("Error loading config from %s: %v\n", path, err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Server.Address = *addrFlag
	}
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}

	if *initFlag {
		if err := config.SaveConfig(cfg, path); err != nil {
			fmt.Printf("Failed to save config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration written to %s\n", path)
		os.Exit(0)
	}

	if *testFlag || *testLongFlag {
		report, ok := runConfigTest(context.Background(), cfg, path, os.Stdout, *jsonFlag)
		if *jsonFlag {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
		}
		if !ok {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if problems := config.Validate(cfg); len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("Error: %s\n", p)
		}
		fmt.Printf("Please fix the configuration at %s (or run with -init to create one).\n", path)
		os.Exit(1)
	}

	logOut, closeLog, err := logOutput(*logFileFlag, *tuiFlag)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	setLoggers(newLogger(logOut, cfg.LogLevel, *logJSONFlag))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *tuiFlag); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the application and serves until ctx ends or the dashboard quits.
func run(ctx context.Context, cfg config.Config, withTUI bool) error {
	manager, client, err := wallet.Open(ctx, cfg.Provider.RPCURL, cfg.Provider.PrivateKey, cfg.PollInterval())
	if err != nil {
		return err
	}
	if client == nil {
		return errNoProvider
	}
	defer client.Close()

	parsed, err := contract.LoadABI(cfg.Contract.ABIPath)
	if err != nil {
		return err
	}
	contractAddr := common.HexToAddress(cfg.Contract.Address)

	m := metrics.New()
	session := app.New(app.Options{
		Wallet:   manager,
		Balances: client,
		NewGateway: func(from common.Address) app.Gateway {
			return contract.NewGateway(client, manager.Signer(), contractAddr, from, parsed, cfg.ReceiptPollInterval())
		},
		Notifier: notify.NewPresenter(cfg.NotificationTimeout()),
		Metrics:  m,
	})
	session.Start(ctx)

	srv := server.NewServer(session, cfg.Server, m.Handler())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if withTUI {
		err = tui.Start(ctx, session, Version)
	} else {
		go func() { _ = session.Init(ctx) }()
		select {
		case <-ctx.Done():
		case err = <-errCh:
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

func newLogger(out io.Writer, level string, asJSON bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if !asJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// logOutput picks the log destination. The dashboard owns the terminal, so
// without a log file its logs are discarded.
func logOutput(path string, withTUI bool) (io.Writer, func(), error) {
	if path == "" {
		if withTUI {
			return io.Discard, func() {}, nil
		}
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func setLoggers(l zerolog.Logger) {
	wallet.SetLogger(l.With().Str("component", "wallet").Logger())
	view.SetLogger(l.With().Str("component", "view").Logger())
	app.SetLogger(l.With().Str("component", "app").Logger())
	server.SetLogger(l.With().Str("component", "server").Logger())
}

var errNoProvider = errors.New("no wallet provider configured")
