package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ProofBench/internal/auth"
	"ProofBench/internal/benchmark"
	"ProofBench/internal/config"
	"ProofBench/internal/consent"
	"ProofBench/internal/events"
	"ProofBench/internal/network"
	"ProofBench/internal/observability/alerting"
	"ProofBench/internal/proof"
	"ProofBench/internal/storage/mysql"
	redisstore "ProofBench/internal/storage/redis"
)

// resources 收集需要在退出时关闭的后端连接，按打开的逆序关闭。
type resources struct {
	closers []namedCloser
}

type namedCloser struct {
	name   string
	closer io.Closer
}

func (r *resources) add(name string, c io.Closer) {
	r.closers = append(r.closers, namedCloser{name: name, closer: c})
}

func (r *resources) close(lg *slog.Logger) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.closer.Close(); err != nil {
			lg.Warn("关闭资源失败", slog.String("resource", c.name), slog.String("error", err.Error()))
		}
	}
}

func loadReferenceSet(cfg config.BenchmarkConfig) (*benchmark.ReferenceSet, error) {
	fallback := benchmark.DefaultIndustry
	if cfg.DefaultIndustry != "" {
		var ok bool
		if fallback, ok = benchmark.ParseIndustry(cfg.DefaultIndustry); !ok {
			return nil, fmt.Errorf("未知默认行业 %q", cfg.DefaultIndustry)
		}
	}
	if cfg.ReferenceData == "" {
		return benchmark.DefaultReferenceSet(), nil
	}
	return benchmark.LoadReferenceSet(cfg.ReferenceData, fallback)
}

func openProofStore(ctx context.Context, cfg config.StoreConfig, res *resources) (proof.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return proof.NewMemoryStore(), nil
	case config.DriverMySQL:
		db, err := mysql.Open(ctx, mysql.Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		store := mysql.NewProofStore(db)
		res.add("mysql proofs", store)
		return store, nil
	case config.DriverRedis:
		client, err := redisstore.Dial(ctx, redisConfig(cfg.Redis))
		if err != nil {
			return nil, err
		}
		store := redisstore.NewProofStore(client, client.Close, cfg.Redis.Prefix)
		res.add("redis proofs", store)
		return store, nil
	default:
		return nil, fmt.Errorf("未知的证明存储驱动: %s", cfg.Driver)
	}
}

func openConsentStore(ctx context.Context, cfg config.StoreConfig, res *resources) (consent.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return consent.NewMemoryStore(), nil
	case config.DriverMySQL:
		db, err := mysql.Open(ctx, mysql.Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		store := mysql.NewConsentStore(db)
		res.add("mysql consents", store)
		return store, nil
	default:
		return nil, fmt.Errorf("未知的同意书存储驱动: %s", cfg.Driver)
	}
}

func openChallengeStore(ctx context.Context, cfg config.StoreConfig, res *resources) (auth.ChallengeStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return auth.NewMemoryChallengeStore(), nil
	case config.DriverRedis:
		client, err := redisstore.Dial(ctx, redisConfig(cfg.Redis))
		if err != nil {
			return nil, err
		}
		res.add("redis challenges", client)
		return redisstore.NewChallengeStore(client, cfg.Redis.Prefix, nil), nil
	default:
		return nil, fmt.Errorf("未知的挑战存储驱动: %s", cfg.Driver)
	}
}

func redisConfig(cfg config.RedisConfig) redisstore.Config {
	return redisstore.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   cfg.Prefix,
	}
}

func openPublisher(ctx context.Context, cfg config.EventsConfig, res *resources) (events.Publisher, error) {
	var (
		publisher events.Publisher
		err       error
	)
	switch cfg.Driver {
	case config.EventsNoop:
		return events.NoopPublisher{}, nil
	case config.EventsMemory:
		return events.NewMemoryPublisher(), nil
	case config.EventsRedis:
		publisher, err = events.NewRedisPublisher(ctx, events.RedisConfig{
			Address:  cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Channel,
		})
	case config.EventsRabbitMQ:
		publisher, err = events.NewRabbitMQPublisher(events.RabbitMQConfig{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
		})
	default:
		return nil, fmt.Errorf("未知的事件驱动: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	res.add("events "+publisher.Name(), publisher)
	return publisher, nil
}

func selectAdapter(ctx context.Context, cfg *config.Config, mock *network.MockAdapter) (network.Adapter, error) {
	defs, err := network.LoadDefinitions(cfg.Network.Definitions)
	if err != nil {
		return nil, err
	}
	return network.New(ctx, network.Settings{
		Mode:            network.Mode(cfg.Network.Mode),
		Strict:          cfg.StrictNetwork(),
		Network:         cfg.Network.Network,
		RPCURL:          cfg.Network.RPCURL,
		ContractAddress: cfg.Network.ContractAddress,
		APIKey:          cfg.Network.APIKey,
		Timeout:         time.Duration(cfg.Network.TimeoutSeconds) * time.Second,
		Definitions:     defs,
	}, mock)
}

func buildAlerts(cfg config.AlertingConfig) alerting.Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	notifiers := []alerting.Notifier{&alerting.LogNotifier{}}
	if len(cfg.Webhooks) > 0 {
		notifiers = append(notifiers, &alerting.WebhookNotifier{URLs: cfg.Webhooks})
	}
	return alerting.NewFanout(notifiers...)
}
