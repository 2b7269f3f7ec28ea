package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/client"
	"github.com/Sternrassler/domus-client/pkg/config"
	"github.com/Sternrassler/domus-client/pkg/geo"
	"github.com/Sternrassler/domus-client/pkg/jsonp"
	"github.com/Sternrassler/domus-client/pkg/metrics"
	"github.com/Sternrassler/domus-client/pkg/providers"
	"github.com/Sternrassler/domus-client/pkg/providers/realtor"
	"github.com/Sternrassler/domus-client/pkg/providers/redfin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App wires the clients behind the gin router.
type App struct {
	redis          *redis.Client
	fetcher        *bulk.Fetcher
	providerClient *client.Client

	geo     *geo.Service
	realtor *realtor.Client
	redfin  *redfin.Client

	// redfinBaseURL is the target of the /rfapi pass-through.
	redfinBaseURL string

	router *gin.Engine
	logger zerolog.Logger
}

// NewApp builds the clients from cfg. redisClient may be nil.
func NewApp(cfg *config.Config, redisClient *redis.Client) (*App, error) {
	providerClient, err := client.New(cfg.ProviderClientConfig(redisClient))
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}

	fetcher := bulk.NewFetcher(cfg.BulkFetcherConfig())

	a := &App{
		redis:          redisClient,
		fetcher:        fetcher,
		providerClient: providerClient,
		geo:            geo.NewService(fetcher, providerClient),
		realtor:        realtor.NewClient(fetcher, providerClient),
		redfin:         redfin.NewClient(providerClient),
		redfinBaseURL:  redfin.BaseURL,
		logger:         log.With().Str("component", "domus-proxy").Logger(),
	}

	a.router = gin.New()
	a.router.Use(gin.Recovery(), requestLogger(a.logger), requestMetrics())
	a.setupRoutes()

	return a, nil
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler {
	return a.router
}

// Close releases the provider client's connections.
func (a *App) Close() error {
	return a.providerClient.Close()
}

func (a *App) setupRoutes() {
	a.router.GET("/health", a.health)
	a.router.GET("/ready", a.ready)
	a.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	a.router.GET("/commutes", a.commutes)
	a.router.GET("/realtor/property/:id", a.realtorProperty)
	a.router.GET("/realtor/search", a.realtorSearch)
	a.router.GET("/redfin/regions", a.redfinRegions)
	a.router.GET("/rfapi/*path", a.redfinPassThrough)
	a.router.DELETE("/cache/:host", a.purgeCache)
}

func (a *App) health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (a *App) ready(c *gin.Context) {
	if a.redis == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.redis.Ping(ctx).Err(); err != nil {
		a.logger.Warn().Err(err).Msg("Redis ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "redis": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": "ok"})
}

// commutes serves GET /commutes?from=lat,lon&name=Home&to=Work:lat,lon&to=...
func (a *App) commutes(c *gin.Context) {
	start, err := geo.ParseCoordinate(c.Query("from"))
	if err != nil {
		badRequest(c, err)
		return
	}

	destinations := make([]geo.Destination, 0, len(c.QueryArray("to")))
	for _, raw := range c.QueryArray("to") {
		dest, err := parseDestination(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		destinations = append(destinations, dest)
	}
	if len(destinations) == 0 {
		badRequest(c, errors.New("at least one to=name:lat,lon is required"))
		return
	}

	commutes, err := a.geo.Commutes(c.Request.Context(), start, c.DefaultQuery("name", "Start"), destinations)
	if err != nil {
		a.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, commutes)
}

// parseDestination parses "name:lat,lon". The name may itself contain colons.
func parseDestination(raw string) (geo.Destination, error) {
	i := strings.LastIndex(raw, ":")
	if i <= 0 {
		return geo.Destination{}, fmt.Errorf("destination %q: want name:lat,lon", raw)
	}
	coords, err := geo.ParseCoordinate(raw[i+1:])
	if err != nil {
		return geo.Destination{}, fmt.Errorf("destination %q: %w", raw, err)
	}
	return geo.Destination{Name: raw[:i], Coords: coords}, nil
}

// realtorProperty serves GET /realtor/property/:id?panel=details&panel=...
func (a *App) realtorProperty(c *gin.Context) {
	var panels []realtor.Panel
	for _, p := range c.QueryArray("panel") {
		panels = append(panels, realtor.Panel(p))
	}

	bundle, err := a.realtor.PropertyBundle(c.Request.Context(), c.Param("id"), panels...)
	if err != nil {
		if errors.Is(err, realtor.ErrUnknownPanel) || errors.Is(err, realtor.ErrEmptyPropertyID) {
			badRequest(c, err)
			return
		}
		a.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"property_id": bundle.PropertyID,
		"panels":      bundle.Panels,
		"failures":    bundle.FailureMessages(),
	})
}

type realtorSearchQuery struct {
	Location    string  `form:"location"`
	Center      string  `form:"center"`
	RadiusMiles float64 `form:"radius" binding:"gte=0"`
	MinPrice    int     `form:"min_price" binding:"gte=0"`
	MaxPrice    int     `form:"max_price" binding:"gte=0"`
	MinBeds     int     `form:"min_beds" binding:"gte=0"`
	MaxBeds     int     `form:"max_beds" binding:"gte=0"`
	MinBaths    float64 `form:"min_baths" binding:"gte=0"`
	Pending     bool    `form:"pending"`
	Contingent  bool    `form:"contingent"`
	Limit       int     `form:"limit" binding:"gte=0,lte=200"`
	Offset      int     `form:"offset" binding:"gte=0"`
	Sort        string  `form:"sort"`
}

// realtorSearch serves GET /realtor/search?location=... or ?center=lat,lon&radius=miles.
func (a *App) realtorSearch(c *gin.Context) {
	var q realtorSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	filters := realtor.Filters{
		Pending:    q.Pending,
		Contingent: q.Contingent,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		MinBeds:    q.MinBeds,
		MaxBeds:    q.MaxBeds,
		MinBaths:   q.MinBaths,
		Limit:      q.Limit,
		Offset:     q.Offset,
		Sort:       q.Sort,
	}

	var (
		result *realtor.SearchResult
		err    error
	)
	switch {
	case q.Location != "":
		result, err = a.realtor.QuerySearch(c.Request.Context(), q.Location, filters)
	case q.Center != "":
		center, perr := geo.ParseCoordinate(q.Center)
		if perr != nil {
			badRequest(c, perr)
			return
		}
		result, err = a.realtor.MapSearch(c.Request.Context(), realtor.MapSearch{
			Center:      center,
			RadiusMiles: q.RadiusMiles,
			Filters:     filters,
		})
	default:
		badRequest(c, errors.New("location or center is required"))
		return
	}
	if err != nil {
		if errors.Is(err, realtor.ErrInvalidArea) || errors.Is(err, realtor.ErrEmptyQuery) {
			badRequest(c, err)
			return
		}
		a.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *App) redfinRegions(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, errors.New("q is required"))
		return
	}

	regions, err := a.redfin.QueryLocation(c.Request.Context(), q)
	if err != nil {
		a.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, regions)
}

// redfinPassThrough forwards GET /rfapi/<path>?<query> to redfin through the
// caching client and returns the JSON with its prefix removed.
func (a *App) redfinPassThrough(c *gin.Context) {
	header := http.Header{}
	header.Set("Accept", "*/*")
	header.Set("User-Agent", providers.BrowserUserAgent)

	req := bulk.Get("rfapi", a.redfinBaseURL+c.Param("path"), c.Request.URL.Query(), header)
	result, err := a.providerClient.Send(c.Request.Context(), req)
	if err != nil {
		badRequest(c, err)
		return
	}
	if result.Failed() {
		a.upstreamError(c, result.Err)
		return
	}

	c.Data(result.StatusCode, "application/json; charset=utf-8", jsonp.Strip(result.Body))
}

// purgeCache serves DELETE /cache/:host.
func (a *App) purgeCache(c *gin.Context) {
	manager := a.providerClient.Cache()
	if manager == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "cache disabled"})
		return
	}

	host := c.Param("host")
	purged, err := manager.PurgeHost(c.Request.Context(), host)
	if err != nil {
		a.logger.Error().Err(err).Str("host", host).Msg("Cache purge failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "purged": purged})
		return
	}

	a.logger.Info().Str("host", host).Int("purged", purged).Msg("Cache purged")
	c.JSON(http.StatusOK, gin.H{"host": host, "purged": purged})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// upstreamError maps a provider failure to a gateway status.
func (a *App) upstreamError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	body := gin.H{"error": err.Error()}

	var statusErr *bulk.StatusError
	switch {
	case errors.As(err, &statusErr):
		body["upstream_status"] = statusErr.StatusCode
	case errors.Is(err, client.ErrHostCoolingDown):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bulk.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	a.logger.Warn().Err(err).Str("path", c.Request.URL.Path).Int("status", status).Msg("Upstream request failed")
	c.JSON(status, body)
}
