package authgate

import (
	"errors"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/stockfolio/authgate/password"
	"github.com/stockfolio/authgate/session"
	"github.com/stockfolio/authgate/token"
	"github.com/stockfolio/authgate/users"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, and treat the result as immutable.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	users  users.Store
	log    *slog.Logger

	built bool
}

// New returns a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenSecret sets the session-cookie signing key without replacing the
// rest of the defaults.
func (b *Builder) WithTokenSecret(secret []byte) *Builder {
	b.config.Token.Secret = cloneBytes(secret)
	return b
}

// WithIssuer sets the label authenticator apps show for provisioned
// secrets.
func (b *Builder) WithIssuer(issuer string) *Builder {
	b.config.TOTP.Issuer = issuer
	return b
}

// WithRedis sets the Redis client backing the session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the credential store.
func (b *Builder) WithUserStore(store users.Store) *Builder {
	b.users = store
	return b
}

// WithLogger sets the structured logger. When omitted the engine is silent.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration and wires the engine. A Builder may
// only be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.New(cfg.Password.Cost)
	if err != nil {
		return nil, err
	}

	tokenTTL := cfg.Token.TTL
	if tokenTTL == 0 {
		tokenTTL = cfg.Session.Lifetime
	}
	tokens, err := token.NewManager(cfg.Token.Secret, tokenTTL)
	if err != nil {
		return nil, err
	}

	log := b.log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.SlidingExpiration),
		tokens:   tokens,
		hasher:   hasher,
		totp:     newTOTPEngine(cfg.TOTP),
		log:      log,
	}
	engine.gates = engine.buildGates()

	b.built = true
	return engine, nil
}
