package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/MrSnakeDoc/ec2-namer/internal/app"
	"github.com/MrSnakeDoc/ec2-namer/internal/config"
	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
	"github.com/MrSnakeDoc/ec2-namer/internal/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ec2-namer: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("ec2-namer", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ec2-namer [flags] [identity|routes|all]\n\n")
		fs.PrintDefaults()
	}

	configPath := fs.StringP("config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	provider := fs.String("provider", "", "inventory and DNS backend (aws, redis)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	prettyLog := fs.Bool("pretty-log", false, "colored console logs instead of JSON")
	timeout := fs.Duration("timeout", 0, "timeout of the whole run")
	region := fs.String("region", "", "AWS region, read from instance metadata when empty")
	instanceID := fs.String("instance-id", "", "instance ID, read from instance metadata when empty")
	redisAddr := fs.String("redis-addr", "", "Redis address for the redis provider")
	showVersion := fs.BoolP("version", "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Println(version.String())
		return nil
	}

	if fs.NArg() > 1 {
		return fmt.Errorf("expected at most one command, got %v", fs.Args())
	}
	cmd, err := app.ParseCommand(fs.Arg(0))
	if err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// flags win over file and environment
	if fs.Changed("provider") {
		cfg.Provider = *provider
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("pretty-log") {
		cfg.PrettyLog = *prettyLog
	}
	if fs.Changed("timeout") {
		cfg.Timeout = *timeout
	}
	if fs.Changed("region") {
		cfg.AWS.Region = *region
	}
	if fs.Changed("instance-id") {
		cfg.InstanceID = *instanceID
	}
	if fs.Changed("redis-addr") {
		cfg.Redis.Addr = *redisAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.LogLevel == "debug" {
		log.Debugf("cfg: %+v", cfg.Redacted())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", logger.Error(err))
		return err
	}
	defer a.Close()

	hostname, err := a.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if hostname != "" {
		fmt.Println(hostname)
	}
	return nil
}
