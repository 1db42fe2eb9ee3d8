// Package cli wires the studio components for the luxstudio command and
// holds its terminal helpers.
package cli

import (
	"context"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/luxstudio/internal/auth"
	"github.com/fpang/luxstudio/internal/bundle"
	"github.com/fpang/luxstudio/internal/config"
	"github.com/fpang/luxstudio/internal/logging"
	"github.com/fpang/luxstudio/internal/metrics"
	"github.com/fpang/luxstudio/internal/prefs"
	"github.com/fpang/luxstudio/internal/session"
	"github.com/fpang/luxstudio/internal/store"
	"github.com/fpang/luxstudio/internal/studio"
)

// App bundles the wired components a command needs.
type App struct {
	Config  *config.Config
	Keys    *auth.Store
	Store   *store.BestEffort
	Engine  *studio.Engine
	Session *session.Controller
	Metrics *metrics.Sink
	// S3 is nil unless an export bucket is configured.
	S3 bundle.S3API
}

// InitApp builds every component from cfg and restores the saved session.
// AWS clients are created only for the features that are configured.
func InitApp(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	start := time.Now()
	app := &App{Config: cfg}

	if cfg.Metrics {
		app.Metrics = metrics.NewSink(metrics.DefaultNamespace, os.Stderr)
	}

	app.Keys = auth.NewStore(cfg.DataDir)
	if cfg.APIKeyParam != "" || cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		if cfg.APIKeyParam != "" {
			app.Keys = app.Keys.WithSSM(ssm.NewFromConfig(awsCfg), cfg.APIKeyParam)
		}
		if cfg.S3Bucket != "" {
			app.S3 = s3.NewFromConfig(awsCfg)
		}
	}

	app.Store = store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		DataDir:     cfg.DataDir,
		DynamoTable: cfg.DynamoTable,
		Owner:       cfg.StoreOwner,
		S3Bucket:    cfg.S3Bucket,
	})

	app.Engine = studio.New(studio.ChatDialer, studio.Options{
		Models: cfg.Models,
		Poll: studio.PollOptions{
			Interval: cfg.PollInterval,
			MaxWait:  cfg.VideoMaxWait,
		},
		Metrics: app.Metrics,
	})

	app.Session = session.New(app.Engine, app.Keys, app.Store, prefs.NewStore(cfg.DataDir), session.Options{
		Debounce: cfg.Debounce,
	})
	app.Session.Restore(ctx)

	health, _ := app.Store.Health()
	models := app.Engine.Models()
	logging.NewStartupLogger("luxstudio").
		Version(version).
		Resource("DataDir", cfg.DataDir).
		Resource("DynamoTable", cfg.DynamoTable).
		Resource("S3Bucket", cfg.S3Bucket).
		Resource("APIKeyParam", cfg.APIKeyParam).
		Config("StoreBackend", cfg.StoreBackend).
		Config("StoreHealth", health.String()).
		Config("AnalyzeModel", models.Analyze).
		Config("FastImageModel", models.FastImage).
		Config("ProImageModel", models.ProImage).
		Config("VideoModel", models.Video).
		Config("TranscribeModel", models.Transcribe).
		Feature("Metrics", cfg.Metrics).
		Feature("S3Export", app.S3 != nil).
		InitDuration(time.Since(start)).
		Log()

	return app, nil
}

// Close writes any pending session change.
func (a *App) Close(ctx context.Context) {
	a.Session.Flush(ctx)
	if health, err := a.Store.Health(); health != store.HealthOK {
		log.Warn().Err(err).Str("health", health.String()).Msg("Session was not persisted")
	}
}
