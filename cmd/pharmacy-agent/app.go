// cmd/pharmacy-agent/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"pharmacy-agent/internal/backend"
	"pharmacy-agent/internal/backend/restapi"
	"pharmacy-agent/internal/backend/search"
	"pharmacy-agent/internal/backend/sqlstore"
	"pharmacy-agent/internal/common/aws"
	"pharmacy-agent/internal/common/cache"
	"pharmacy-agent/internal/common/config"
	"pharmacy-agent/internal/common/database"
	httpclient "pharmacy-agent/internal/common/http"
	"pharmacy-agent/internal/common/llm"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/common/observability"
	"pharmacy-agent/internal/common/validation"
	"pharmacy-agent/internal/rules"
	dispatchintent "pharmacy-agent/internal/workers/agent/dispatch-intent"
	extractintent "pharmacy-agent/internal/workers/agent/extract-intent"
	renderresponse "pharmacy-agent/internal/workers/agent/render-response"
	runagent "pharmacy-agent/internal/workers/agent/run-agent"
	notifyadmin "pharmacy-agent/internal/workers/notification/notify-admin"
)

// app holds the wired pipeline and everything that must be closed on exit.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	runner   *runagent.Handler
	notifier *notifyadmin.Handler
	obs      *observability.Observability
	sql      *database.SQLClient
	searcher *search.Searcher
	closers  []func()
}

func (a *app) Close() {
	// Pending admin events are delivered before connections go away.
	a.notifier.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.obs.Shutdown(context.Background())
}

func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			for i := len(a.closers) - 1; i >= 0; i-- {
				a.closers[i]()
			}
		}
	}()

	ops, err := a.buildBackend(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		a.searcher = search.New(ops, es, cfg.Database.Elasticsearch.Index, log)
		ops = a.searcher
		log.Info("Elasticsearch search enabled", map[string]interface{}{"index": cfg.Database.Elasticsearch.Index})
	}
	ops = backend.NewInstrumented(ops)

	session, err := a.buildSession(ctx)
	if err != nil {
		return nil, err
	}

	book := rules.Empty()
	if cfg.Rules.Path != "" {
		book, err = rules.Load(cfg.Rules.Path)
		if err != nil {
			return nil, err
		}
		log.Info("Medicine rules loaded", map[string]interface{}{"path": cfg.Rules.Path, "rules": book.Len()})
	}

	sinks, err := a.buildSinks(ctx)
	if err != nil {
		return nil, err
	}
	a.notifier = notifyadmin.NewHandler(notifyadmin.LoadConfig(cfg), sinks, log)

	var completer llm.Completer
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return nil, err
		}
		completer = client
	} else {
		log.Warn("No LLM API key configured, using the rule-based parser only", nil)
	}

	validator, err := validation.Extraction()
	if err != nil {
		return nil, err
	}

	a.obs = observability.New(cfg.App.Name, nil, log)
	a.runner = runagent.NewHandler(
		extractintent.NewHandler(extractintent.LoadConfig(cfg), completer, validator, session, log),
		dispatchintent.NewHandler(dispatchintent.LoadConfig(cfg), ops, session, book, a.notifier, log),
		renderresponse.NewHandler(log),
		a.obs,
		log,
	)

	ok = true
	return a, nil
}

func (a *app) buildBackend(ctx context.Context) (backend.Operations, error) {
	cfg := a.cfg

	switch cfg.Backend.Driver {
	case "http":
		client := httpclient.NewClient(httpclient.Settings{
			Name:    "pharmacy-backend",
			BaseURL: cfg.Backend.BaseURL,
			Timeout: config.GetDuration(cfg.Backend.Timeout),
			Breaker: httpclient.BreakerSettings{
				MaxRequests:  cfg.Backend.Breaker.MaxRequests,
				Interval:     config.GetDuration(cfg.Backend.Breaker.Interval),
				Timeout:      config.GetDuration(cfg.Backend.Breaker.Timeout),
				MinRequests:  cfg.Backend.Breaker.MinRequests,
				FailureRatio: cfg.Backend.Breaker.FailureRatio,
			},
		}, a.log)
		a.log.Info("Using REST backend", map[string]interface{}{"baseUrl": cfg.Backend.BaseURL})
		return restapi.New(client, a.log), nil

	case "postgres":
		var client *database.SQLClient
		err := retryWithBackoff(func() error {
			var err error
			client, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := client.Ping(ctx); err != nil {
				client.Close()
				return err
			}
			return nil
		}, 5, 2*time.Second, a.log, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		a.sql = client

	case "sqlite", "":
		client, err := database.NewSQLite(cfg.Database.SQLite)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		a.sql = client

	default:
		return nil, fmt.Errorf("unsupported backend driver %q", cfg.Backend.Driver)
	}

	if err := database.Migrate(ctx, a.sql); err != nil {
		return nil, err
	}
	if cfg.Backend.Seed {
		if err := database.Seed(ctx, a.sql, database.DemoCatalogue); err != nil {
			return nil, err
		}
	}
	a.log.Info("Using SQL backend", map[string]interface{}{"dialect": string(a.sql.Dialect)})
	return sqlstore.New(a.sql, a.log), nil
}

func (a *app) buildSession(ctx context.Context) (*cache.Session, error) {
	switch a.cfg.Cache.Driver {
	case "redis":
		rdb := database.NewRedis(a.cfg.Database.Redis)
		if err := database.PingRedis(ctx, rdb); err != nil {
			rdb.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		return cache.NewSession(cache.NewRedis(rdb, a.cfg.Cache.KeyPrefix)), nil
	case "memory", "":
		return cache.NewSession(cache.NewMemory()), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", a.cfg.Cache.Driver)
	}
}

func (a *app) buildSinks(ctx context.Context) ([]notifyadmin.Sink, error) {
	n := a.cfg.Notifications
	var sinks []notifyadmin.Sink

	if n.Webhook.Enabled {
		client := httpclient.NewClient(httpclient.Settings{
			Name:    "admin-webhook",
			BaseURL: n.Webhook.URL,
			Timeout: config.GetDuration(n.Timeout),
			Breaker: httpclient.BreakerSettings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 5, FailureRatio: 0.8},
		}, a.log)
		sinks = append(sinks, notifyadmin.NewWebhookSink(client))
	}

	if n.SNS.Enabled || n.Email.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, n.AWS.Region)
		if err != nil {
			return nil, err
		}
		if n.SNS.Enabled {
			sinks = append(sinks, notifyadmin.NewTopicSink(aws.NewTopicPublisher(aws.NewSNS(awsCfg), n.SNS.TopicARN)))
		}
		if n.Email.Enabled {
			mailer := aws.NewMailer(aws.NewSES(awsCfg), n.Email.FromEmail, n.Email.To)
			sinks = append(sinks, notifyadmin.NewEmailSink(mailer, notifyadmin.LoadConfig(a.cfg).EmailSubject))
		}
	}

	if n.NATS.Enabled {
		conn, err := nats.Connect(n.NATS.URL,
			nats.Name(a.cfg.App.Name),
			nats.Timeout(config.GetDuration(n.Timeout)),
			nats.MaxReconnects(10),
		)
		if err != nil {
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Drain() })
		sinks = append(sinks, notifyadmin.NewNATSSink(conn, n.NATS.Subject))
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	a.log.Info("Admin notification sinks", map[string]interface{}{"sinks": names})
	return sinks, nil
}

// retryWithBackoff attempts operation up to maxRetries times, doubling the delay.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
