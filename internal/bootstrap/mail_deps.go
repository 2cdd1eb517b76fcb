package bootstrap

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	httpin "mail_server/adapter/in/http"
	"mail_server/adapter/in/worker"
	"mail_server/adapter/out/llm"
	"mail_server/adapter/out/persistence"
	"mail_server/adapter/out/provider/gmail"
	"mail_server/config"
	"mail_server/core/port/in"
	"mail_server/core/port/out"
	"mail_server/core/service/analyze"
	"mail_server/core/service/auth"
	"mail_server/core/service/mail"
	"mail_server/pkg/httputil"
	"mail_server/pkg/logger"
)

// Dependencies wires the adapters into the services. Redis is optional;
// without it the CSRF and de-duplication guards are disabled.
type Dependencies struct {
	Config *config.Config
	Redis  *redis.Client

	TokenStore out.TokenStore
	StateStore *persistence.RedisStateStore

	OAuthFlow in.OAuthFlow
	Reader    in.MailReader
	Analyzer  in.Analyzer
	Renewer   *worker.WatchRenewer
}

// NewDependencies constructs the object graph. The returned cleanup
// closes shared connections.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("[Bootstrap] Redis unreachable, state guards disabled")
		} else {
			deps.Redis = client
			deps.StateStore = persistence.NewRedisStateStore(client)
		}
		cancel()
	}

	switch cfg.TokenSource {
	case config.TokenSourceEnv:
		deps.TokenStore = persistence.NewEnvTokenStore(cfg.GmailToken)
		logger.Info("[Bootstrap] Using env token store")
	default:
		deps.TokenStore = persistence.NewFileTokenStore(cfg.TokenPath)
		logger.Info("[Bootstrap] Using file token store at %s", cfg.TokenPath)
	}

	httpClient := httputil.SharedClient()

	deps.OAuthFlow = auth.NewService(auth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       cfg.GmailScopes,
	}, deps.TokenStore, httpClient)

	factory := gmail.NewFactory(cfg.GoogleProjectID, httpClient)
	deps.Reader = mail.NewService(deps.OAuthFlow, factory, "INBOX")

	deps.Analyzer = analyze.NewService(llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: float32(cfg.LLMTemperature),
	}, httpClient))

	deps.Renewer = worker.NewWatchRenewer(deps.Reader)
	if cfg.WatchAutoRenew {
		deps.Renewer.Start()
	}

	cleanup := func() {
		deps.Renewer.Stop()
		if deps.Redis != nil {
			if err := deps.Redis.Close(); err != nil {
				logger.WithError(err).Warn("[Bootstrap] Failed to close Redis client")
			}
		}
	}
	return deps, cleanup, nil
}

// stateStore adapts the optional Redis store to the handler interfaces,
// keeping typed-nil pointers out of them.
func (d *Dependencies) stateStore() httpin.StateStore {
	if d.StateStore == nil {
		return nil
	}
	return d.StateStore
}

func (d *Dependencies) eventStore() httpin.EventStore {
	if d.StateStore == nil {
		return nil
	}
	return d.StateStore
}
