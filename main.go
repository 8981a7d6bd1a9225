package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"acctview/pkg/accounts"
	"acctview/pkg/balance"
	"acctview/pkg/chain"
	"acctview/pkg/config"
	"acctview/pkg/favorites"
	"acctview/pkg/logging"
	"acctview/pkg/metrics"
	"acctview/pkg/models"
	"acctview/pkg/server"
	"acctview/pkg/session"
	"acctview/pkg/tui"
	"acctview/pkg/watcher"

	"github.com/rs/zerolog"
)

// Version should be set during build
var Version = "dev"

func main() {
	testFlag := flag.Bool("t", false, "Test configuration and exit")
	testLongFlag := flag.Bool("test", false, "Test configuration and exit")
	jsonFlag := flag.Bool("json", false, "Output test results as JSON")
	configFlag := flag.String("config", "", "Path to configuration file")
	envFlag := flag.String("env", "", "Path to a dotenv file (default .env)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	serverFlag := flag.Bool("server", false, "Run in headless server mode")
	portFlag := flag.Int("port", 8080, "Port for API server")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("acctview version %s\n", Version)
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
	var dotenv []string
	if *envFlag != "" {
		dotenv = append(dotenv, *envFlag)
	}
	if err := config.ApplyEnv(&cfg.Global, dotenv...); err != nil {
		fmt.Printf("Error reading environment: %v\n", err)
		os.Exit(1)
	}

	if *testFlag || *testLongFlag {
		os.Exit(runTest(os.Stdout, path, cfg, *jsonFlag))
	}

	if len(cfg.Chains) == 0 {
		fmt.Println("Error: No Chains found in configuration.")
		fmt.Printf("Please create a config file at %s with 'chains'.\n", path)
		os.Exit(1)
	}

	if err := run(path, cfg, *serverFlag, *portFlag); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// runTest checks the config structure and probes every endpoint. It returns
// the process exit code.
func runTest(out io.Writer, path string, cfg config.Config, asJSON bool) int {
	report := models.TestReport{
		ConfigPath:     path,
		ValidStructure: true,
		AccountCount:   len(cfg.Accounts),
		ChainCount:     len(cfg.Chains),
	}
	printf := func(format string, args ...interface{}) {
		if !asJSON {
			_, _ = fmt.Fprintf(out, format, args...)
		}
	}
	emit := func() {
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
		}
	}

	printf("Testing configuration at: %s\n", path)
	if problems := config.Validate(cfg); len(problems) > 0 {
		report.ValidStructure = false
		report.StructureErrors = problems
		for _, p := range problems {
			printf("Error: %s\n", p)
		}
		emit()
		return 1
	}
	printf("Found %d accounts and %d Chains.\n", report.AccountCount, report.ChainCount)

	for _, c := range cfg.Chains {
		cResult := models.ChainResult{Name: c.Name}
		printf("Testing Chain: %s (%s)\n", c.Name, c.Symbol)
		for _, url := range c.RPCURLs {
			printf("  RPC: %s ... ", url)
			res := chain.Probe(context.Background(), c, url)
			if res.Status == "ok" {
				printf("OK (%dms, delegation: %t, proxy: %t)\n", res.LatencyMs, res.Delegation, res.Proxy)
			} else {
				printf("Failed: %s\n", res.Error)
			}
			cResult.RPCs = append(cResult.RPCs, res)
		}
		report.Chains = append(report.Chains, cResult)
	}

	emit()
	return 0
}

// openLogger logs to the console in server mode. The terminal UI owns the
// screen, so there logs go to log_file or nowhere.
func openLogger(g config.GlobalConfig, headless bool) (zerolog.Logger, func(), error) {
	if headless {
		return logging.NewConsole(g.LogLevel, os.Stderr), func() {}, nil
	}
	if g.LogFile == "" {
		return logging.Discard(), func() {}, nil
	}
	f, err := os.OpenFile(g.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.New(g.LogLevel, f), func() { _ = f.Close() }, nil
}

func openFavorites(ctx context.Context, g config.GlobalConfig, configPath string) (favorites.Backend, func(), error) {
	switch g.FavoritesBackend {
	case "", "file":
		return favorites.NewFileBackend(config.FavoritesPath(g, configPath)), func() {}, nil
	case "redis":
		client, err := favorites.DialRedis(ctx, g.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return favorites.NewRedisBackend(client), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown favorites backend %q", g.FavoritesBackend)
}

func run(path string, cfg config.Config, headless bool, port int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog, err := openLogger(cfg.Global, headless)
	if err != nil {
		return err
	}
	defer closeLog()

	policy, err := balance.ParsePolicy(cfg.Global.BalanceTotalPolicy)
	if err != nil {
		return err
	}

	backend, closeFavs, err := openFavorites(ctx, cfg.Global, path)
	if err != nil {
		return err
	}
	defer closeFavs()
	favs, err := favorites.Open(ctx, backend)
	if err != nil {
		return err
	}

	src := accounts.NewSource(cfg.Accounts, func(entries []config.AccountConfig) error {
		next := cfg
		next.Accounts = entries
		return config.SaveConfig(next, path)
	})

	active, _ := cfg.Active()
	var ds session.DataSource
	client, failed, err := chain.Dial(ctx, active)
	for _, url := range failed {
		logger.Warn().Str("chain", active.Name).Str("url", url).Msg("RPC endpoint unreachable")
	}
	if err != nil {
		logger.Error().Err(err).Str("chain", active.Name).Msg("No reachable endpoint, chain lookups disabled")
	} else {
		defer client.Close()
		ds = client
		logger.Info().Str("chain", active.Name).Str("url", client.URL()).Msg("Connected")
	}

	m := metrics.New()
	sess := session.New(src, favs, ds, session.Options{
		Policy:  policy,
		Logger:  &logger,
		Metrics: m,
		Ledger:  balance.New(),
	})
	sess.Start(ctx)
	defer func() {
		stop()
		<-sess.Done()
	}()

	var w *watcher.Watcher
	if client != nil {
		interval := time.Duration(cfg.Global.PollIntervalSeconds) * time.Second
		w = watcher.NewWatcher(client, src, sess, interval, logger)
		w.Start(ctx)
		defer w.Stop()
	}

	srv := server.NewServer(sess, src, m.Registry, logger)
	errCh := make(chan error, 1)
	go func() {
		err := srv.Start(ctx, fmt.Sprintf(":%d", port))
		if err != nil {
			logger.Error().Err(err).Int("port", port).Msg("API server stopped")
		}
		errCh <- err
	}()

	if headless {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		}
	}

	return tui.Start(tui.Options{
		View:     sess,
		Accounts: src,
		Watcher:  w,
		Chain:    active,
		Global:   cfg.Global,
		Version:  Version,
	})
}
