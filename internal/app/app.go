package app

import (
	"context"
	"fmt"
	"io"

	"github.com/MrSnakeDoc/ec2-namer/internal/config"
	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
	"github.com/MrSnakeDoc/ec2-namer/internal/namer"
	awsprovider "github.com/MrSnakeDoc/ec2-namer/internal/provider/aws"
	redisprovider "github.com/MrSnakeDoc/ec2-namer/internal/provider/redis"
	"github.com/MrSnakeDoc/ec2-namer/internal/utils"
	"github.com/MrSnakeDoc/ec2-namer/internal/version"
)

// Command selects the phases of a run.
type Command string

const (
	CommandIdentity Command = "identity"
	CommandRoutes   Command = "routes"
	CommandAll      Command = "all"
)

// ParseCommand validates a command name. Empty means CommandAll.
func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case "":
		return CommandAll, nil
	case CommandIdentity, CommandRoutes, CommandAll:
		return c, nil
	default:
		return "", fmt.Errorf("unknown command %q (want identity, routes or all)", s)
	}
}

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	namer   *namer.Namer
	closers map[string]io.Closer
}

// New connects the configured provider. Close releases it.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  log,
		closers: map[string]io.Closer{},
	}

	switch cfg.Provider {
	case config.ProviderAWS:
		inv, zones, err := awsprovider.New(ctx, awsprovider.Options{
			Region:           cfg.AWS.Region,
			Profile:          cfg.AWS.Profile,
			InstanceID:       cfg.InstanceID,
			MetadataEndpoint: cfg.AWS.MetadataEndpoint,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize aws provider: %w", err)
		}
		a.namer = namer.New(inv, zones, log)

	case config.ProviderRedis:
		client, err := redisprovider.Connect(ctx, redisprovider.ConnectOptions{
			Addr:           cfg.Redis.Addr,
			User:           cfg.Redis.User,
			Password:       cfg.Redis.Password,
			DB:             cfg.Redis.DB,
			DialTimeout:    cfg.Redis.DialTimeout,
			ReadTimeout:    cfg.Redis.ReadTimeout,
			WriteTimeout:   cfg.Redis.WriteTimeout,
			PoolSize:       cfg.Redis.PoolSize,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
			RetryInterval:  cfg.Redis.RetryInterval,
			MaxWait:        cfg.Redis.MaxWait,
			PingTimeout:    cfg.Redis.PingTimeout,
			WarnThreshold:  cfg.Redis.WarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis provider: %w", err)
		}
		a.closers["redis"] = client

		inv := redisprovider.NewInventory(client, redisprovider.InventoryOptions{
			KeyPrefix:  cfg.Redis.KeyPrefix,
			InstanceID: cfg.InstanceID,
			ClaimTTL:   cfg.Redis.SlotClaimTTL,
		})
		a.namer = namer.New(inv, redisprovider.NewZones(client, cfg.Redis.ZonePrefix), log)

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	return a, nil
}

// NewWithNamer builds an App around an existing Namer.
func NewWithNamer(cfg *config.Config, log logger.Logger, n *namer.Namer) *App {
	return &App{
		cfg:     cfg,
		logger:  log,
		namer:   n,
		closers: map[string]io.Closer{},
	}
}

// Run executes cmd within the configured timeout and returns the private
// hostname of the instance.
func (a *App) Run(ctx context.Context, cmd Command) (string, error) {
	a.logger.Debugf("ec2-namer %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var hostname string
	if cmd == CommandIdentity || cmd == CommandAll {
		id, err := a.namer.AssignIdentity(ctx)
		if err != nil {
			a.logger.Error("identity phase failed", logger.Error(err))
			return "", fmt.Errorf("identity: %w", err)
		}
		hostname = id.PrivateHostname()
		a.logger.Info("identity ready",
			logger.String("number", id.Number),
			logger.String("hostname", hostname),
			logger.Bool("changed", id.Changed))
	}

	if cmd == CommandRoutes || cmd == CommandAll {
		tags, err := a.namer.ReconcileRoutes(ctx)
		if err != nil {
			a.logger.Error("routes phase failed", logger.Error(err))
			return "", fmt.Errorf("routes: %w", err)
		}
		if hostname == "" {
			hostname = tags.Get(domain.TagPrivateHostname, tags.Get(domain.TagHostname, ""))
		}
		a.logger.Info("routes ready", logger.Stringer("tags", tags))
	}

	return hostname, nil
}

// Close releases provider connections.
func (a *App) Close() {
	for name, c := range a.closers {
		utils.CloseLogged(c, a.logger, name)
	}
}
