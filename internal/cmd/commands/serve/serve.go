package serve

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/strata-cms/strata/internal/api"
	"github.com/strata-cms/strata/internal/auth"
	"github.com/strata-cms/strata/internal/config"
	"github.com/strata-cms/strata/internal/server"
	"github.com/strata-cms/strata/internal/store/gormstore"
	"github.com/strata-cms/strata/pkg/cache"
	"github.com/strata-cms/strata/pkg/contenttree"
	"github.com/strata-cms/strata/pkg/hypermedia"
)

// Command runs the HTTP server.
type Command struct {
	UI  cli.Ui
	Log hclog.Logger

	flagConfig string
	flagAddr   string
}

func (c *Command) Synopsis() string {
	return "Run the content server"
}

func (c *Command) Help() string {
	return `Usage: strata serve [options]

  Run the content server.

Options:

  -config=<path>
      Path to an HCL configuration file. Defaults are used when omitted.

  -addr=<address>
      Override the configured listen address.
`
}

func (c *Command) Run(args []string) int {
	f := flag.NewFlagSet("serve", flag.ContinueOnError)
	f.StringVar(&c.flagConfig, "config", "", "path to HCL configuration file")
	f.StringVar(&c.flagAddr, "addr", "", "listen address override")
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg := config.Default()
	if c.flagConfig != "" {
		loaded, err := config.FromFile(c.flagConfig)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error loading config: %v", err))
			return 1
		}
		cfg = loaded
	}
	if c.flagAddr != "" {
		cfg.ListenAddr = c.flagAddr
	}

	log := c.Log
	if log == nil {
		log = hclog.Default()
	}
	log.SetLevel(hclog.LevelFromString(cfg.LogLevel))

	notifier := &contenttree.Notifier{}
	store, err := gormstore.Open(cfg.Database.Driver, cfg.Database.DSN, notifier, log.Named("store"))
	if err != nil {
		c.UI.Error(fmt.Sprintf("error opening store: %v", err))
		return 1
	}

	var docCache *cache.Cache
	if cfg.CacheEnabled() {
		prefix := ""
		if cfg.Cache != nil {
			prefix = cfg.Cache.Prefix
		}
		docCache = cache.New(cache.Options{
			Size:   cacheSize(cfg),
			TTL:    cfg.CacheTTL(),
			Prefix: prefix,
			Log:    log.Named("cache"),
		})
		notifier.Subscribe(docCache.HandleEvent)
	}

	engine := hypermedia.NewEngine(store,
		&auth.GroupAuthorizer{AdminGroup: cfg.Auth.AdminGroup},
		docCacheOrNil(docCache),
		log.Named("engine"))

	srv := server.Server{
		Config:   cfg,
		Store:    store,
		Engine:   engine,
		Sessions: &auth.Sessions{Secret: []byte(cfg.Auth.JWTSecret), Users: store, Log: log.Named("auth")},
		Cache:    docCache,
		Logger:   log,
	}

	mux := http.NewServeMux()
	mux.Handle("/health", api.HealthHandler())
	mux.Handle("/", api.ContentHandler(srv))

	c.UI.Info(fmt.Sprintf("Listening on %s", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		c.UI.Error(fmt.Sprintf("server error: %v", err))
		return 1
	}
	return 0
}

func cacheSize(cfg *config.Config) int {
	if cfg.Cache != nil && cfg.Cache.Size > 0 {
		return cfg.Cache.Size
	}
	return 1024
}

// docCacheOrNil keeps the engine's DocumentCache interface nil when the cache
// is disabled; a typed nil would defeat the engine's nil check.
func docCacheOrNil(c *cache.Cache) hypermedia.DocumentCache {
	if c == nil {
		return nil
	}
	return c
}
