package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hdb-predictor/backend/internal/config"
	catalogapp "hdb-predictor/backend/internal/features/catalog/application"
	configapp "hdb-predictor/backend/internal/features/config/application"
	configdomain "hdb-predictor/backend/internal/features/config/domain"
	config_http "hdb-predictor/backend/internal/features/config/presentation/http"
	"hdb-predictor/backend/internal/features/prediction/application"
	"hdb-predictor/backend/internal/features/prediction/infrastructure"
	prediction_cli "hdb-predictor/backend/internal/features/prediction/presentation/cli"
	prediction_http "hdb-predictor/backend/internal/features/prediction/presentation/http"
	schemaapp "hdb-predictor/backend/internal/features/schema/application"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"
	schemainfra "hdb-predictor/backend/internal/features/schema/infrastructure"
	"hdb-predictor/backend/internal/logger"
	"hdb-predictor/backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app is everything built once at startup. All of it is read-only afterwards.
type app struct {
	cfg     *configdomain.AppConfig
	log     logger.Logger
	forms   configapp.FormConfigService
	model   infrastructure.ModelClient
	service application.PredictionService
}

func loadForms(cfg *configdomain.AppConfig, log logger.Logger) (configapp.FormConfigService, error) {
	catalog, err := catalogapp.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	loader := schemaapp.NewSchemaLoader(
		schemainfra.ReadHeaderFile,
		catalog.BaseColumns(),
		configapp.GroupSpecs(catalog),
		cfg.Schema.IgnoreColumns,
	)
	schema, err := loader.Load(cfg.Schema.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	metrics.SchemaColumns.Set(float64(len(schema.Columns)))
	log.Info("schema loaded", map[string]interface{}{
		"dataset":     cfg.Schema.DatasetPath,
		"columns":     len(schema.Columns),
		"base":        len(schema.BaseColumns),
		"groups":      len(schema.Groups),
		"passthrough": len(schema.Passthrough),
	})

	return configapp.NewFormConfigService(catalog, schema)
}

func newApp(configPath string) (*app, error) {
	cfgService := config.NewAppConfigService(configPath)
	cfg, err := cfgService.LoadAppConfig()
	if err != nil {
		return nil, err
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	log := logger.NewZapAdapter(zl)
	if used := cfgService.ConfigFileUsed(); used != "" {
		log.Info("config loaded", map[string]interface{}{"file": used})
	}

	forms, err := loadForms(cfg, log)
	if err != nil {
		return nil, err
	}

	model, err := infrastructure.NewModelClient(cfg.Model, forms.Schema(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		forms:   forms,
		model:   model,
		service: application.NewPredictionService(forms, model, cfg.Model.Timeout, log),
	}, nil
}

func (a *app) Close() {
	if err := a.model.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close model client", nil)
	}
}

func newRouter(a *app) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(a.log))

	tmpl, err := prediction_http.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"model":   a.model.Name(),
			"columns": len(a.forms.Schema().Columns),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	predictionHandler := prediction_http.NewPredictionHandler(a.service, a.forms, a.log)
	r.GET("/", predictionHandler.FormPageHandler)
	r.POST("/predict", predictionHandler.SubmitFormHandler)

	api := r.Group("/api")
	{
		formHandler := config_http.NewFormConfigHandler(a.forms)
		api.GET("/form", formHandler.GetFormHandler)
		api.GET("/schema", formHandler.GetSchemaHandler)
		api.POST("/predict", predictionHandler.PredictHandler)
	}
	return r, nil
}

func runServe(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := newRouter(a)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         a.cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutdown signal received", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runSchema(out io.Writer, configPath string) error {
	cfg, err := config.NewAppConfigService(configPath).LoadAppConfig()
	if err != nil {
		return err
	}
	forms, err := loadForms(cfg, logger.NewNoOpLogger())
	if err != nil {
		return err
	}
	return writeSchema(out, forms.Schema())
}

func writeSchema(out io.Writer, schema *schemadomain.Schema) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(schema)
}

func runAsk(ctx context.Context, out io.Writer, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	_, err = prediction_cli.NewAsker(a.forms, a.service, nil, out).Run(ctx)
	return err
}
