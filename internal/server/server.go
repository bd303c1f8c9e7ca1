package server

import (
	"github.com/hashicorp/go-hclog"

	"github.com/strata-cms/strata/internal/auth"
	"github.com/strata-cms/strata/internal/config"
	"github.com/strata-cms/strata/internal/store/gormstore"
	"github.com/strata-cms/strata/pkg/cache"
	"github.com/strata-cms/strata/pkg/hypermedia"
)

// Server bundles the wired service dependencies the HTTP handlers consume.
type Server struct {
	// Config is the loaded server configuration.
	Config *config.Config

	// Store is the content store backing every read and mutation.
	Store *gormstore.Store

	// Engine is the projection engine.
	Engine *hypermedia.Engine

	// Sessions resolves request principals.
	Sessions *auth.Sessions

	// Cache is the document cache, nil when disabled.
	Cache *cache.Cache

	// Logger is the logger for the server.
	Logger hclog.Logger
}
