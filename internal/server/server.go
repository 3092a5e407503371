// Package server exposes the invoice dataset over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rezonia/nfe-analyzer/internal/config"
	"github.com/rezonia/nfe-analyzer/internal/model"
	"github.com/rezonia/nfe-analyzer/internal/report"
	"github.com/rezonia/nfe-analyzer/internal/storage"
	"github.com/rezonia/nfe-analyzer/internal/store"
)

// SourceHeader names the uploaded document in error messages
const SourceHeader = "X-Source-Name"

const presignExpiry = 15 * time.Minute

// Server represents the HTTP API server
type Server struct {
	config   config.ServerConfig
	router   *gin.Engine
	store    *store.Store
	logger   *slog.Logger
	registry *prometheus.Registry

	storage       storage.Storage
	storagePrefix string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request and error logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry serves and registers metrics on reg instead of a private registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithStorage enables uploading exports with ?upload=true
func WithStorage(st storage.Storage, prefix string) Option {
	return func(s *Server) {
		s.storage = st
		s.storagePrefix = prefix
	}
}

// NewServer creates a new API server over st
func NewServer(cfg config.ServerConfig, st *store.Store, opts ...Option) (*Server, error) {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		store:    st,
		logger:   slog.Default(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	requests, err := NewRequestMetrics(s.registry)
	if err != nil {
		return nil, fmt.Errorf("register request metrics: %w", err)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), RequestID(), Logger(s.logger), requests.Handler())
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/invoices", s.handleIngest)
		v1.GET("/invoices", s.handleListInvoices)
		v1.GET("/invoices/:number", s.handleGetInvoice)
		v1.DELETE("/invoices", s.handleClear)

		v1.GET("/items", s.handleListItems)
		v1.GET("/summary", s.handleSummary)
		v1.GET("/export.xlsx", s.handleExport)
	}
}

// Run starts the HTTP server and shuts it down when ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"invoices": s.store.Len(),
	})
}

func (s *Server) handleIngest(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return
	}

	source := c.GetHeader(SourceHeader)
	if source == "" {
		source = "request-" + c.GetString(RequestIDKey)
	}

	inv, err := s.store.Ingest(c.Request.Context(), source, body)
	if err != nil {
		kind := model.ErrorKind(err)
		c.JSON(statusForKind(kind), ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}

	c.JSON(http.StatusCreated, IngestResponse{
		Source:  source,
		Number:  inv.Number,
		Items:   inv.ItemCount,
		Invoice: inv,
	})
}

func statusForKind(kind string) int {
	switch kind {
	case model.KindMalformed:
		return http.StatusBadRequest
	case model.KindStructural:
		return http.StatusUnprocessableEntity
	case model.KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListInvoices(c *gin.Context) {
	invoices := slices.Collect(s.store.Search(c.Query("q")))
	if invoices == nil {
		invoices = []model.Invoice{}
	}
	c.JSON(http.StatusOK, InvoiceListResponse{Invoices: invoices, Count: len(invoices)})
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	number := c.Param("number")
	inv, ok := s.store.Invoice(number)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("invoice %s not found", number)})
		return
	}
	items := s.store.ItemsFor(number)
	if items == nil {
		items = []model.LineItem{}
	}
	c.JSON(http.StatusOK, InvoiceResponse{Invoice: inv, Items: items})
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.store.Clear(c.Request.Context()); err != nil {
		s.logger.Error("clear failed", "request_id", c.GetString(RequestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListItems(c *gin.Context) {
	var items []model.LineItem
	if number := c.Query("invoice"); number != "" {
		items = s.store.ItemsFor(number)
	} else {
		items = s.store.Items()
	}
	if items == nil {
		items = []model.LineItem{}
	}
	c.JSON(http.StatusOK, ItemListResponse{Items: items, Count: len(items)})
}

func (s *Server) handleSummary(c *gin.Context) {
	summary := s.store.Summary()
	c.JSON(http.StatusOK, SummaryResponse{
		Summary:       summary,
		CustomerCount: summary.CustomerCount(),
		ProductCount:  summary.ProductCount(),
	})
}

func (s *Server) handleExport(c *gin.Context) {
	ds := s.store.Snapshot()
	if len(ds.Invoices()) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: report.ErrNoData.Error()})
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, report.LineItems(ds), report.Invoices(ds)); err != nil {
		s.logger.Error("export failed", "request_id", c.GetString(RequestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	upload, _ := strconv.ParseBool(c.Query("upload"))
	if !upload {
		c.Header("Content-Disposition", `attachment; filename="nfe-report.xlsx"`)
		c.Data(http.StatusOK, storage.XLSXContentType, buf.Bytes())
		return
	}

	if s.storage == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "object storage is not configured"})
		return
	}

	ctx := c.Request.Context()
	info, err := storage.UploadWorkbook(ctx, s.storage, s.storagePrefix, buf.Bytes(), map[string]string{
		"invoices": strconv.Itoa(len(ds.Invoices())),
	})
	if err != nil {
		s.logger.Error("export upload failed", "request_id", c.GetString(RequestIDKey), "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	url, err := s.storage.PresignGet(ctx, info.Key, presignExpiry)
	if err != nil {
		s.logger.Warn("presign failed", "key", info.Key, "error", err)
	}
	c.JSON(http.StatusCreated, ExportResponse{Key: info.Key, Size: info.Size, URL: url})
}
