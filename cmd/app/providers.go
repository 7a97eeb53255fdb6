package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domaincap "github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/harvest"
	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/session"
	"github.com/harvesta/companion/internal/domain/weather"
	"github.com/harvesta/companion/internal/infra/capability"
	"github.com/harvesta/companion/internal/infra/config"
	"github.com/harvesta/companion/internal/infra/harvestapi"
	"github.com/harvesta/companion/internal/infra/imagesource"
	"github.com/harvesta/companion/internal/infra/noticebus"
	"github.com/harvesta/companion/internal/infra/upstream"
	"github.com/harvesta/companion/internal/infra/weather/openweather"
)

func provideImageResolver(cfg *config.Config, logger *slog.Logger) (*imagesource.Resolver, error) {
	resolver := imagesource.NewResolver()
	if root := strings.TrimSpace(cfg.Images.LocalRoot); root != "" {
		files, err := imagesource.NewFileOpener(root)
		if err != nil {
			return nil, err
		}
		resolver.Register("file", files)
	}
	if cfg.Images.S3.Enabled {
		s3 := cfg.Images.S3
		objects, err := imagesource.NewObjectOpener(s3.Endpoint, s3.AccessKey, s3.SecretKey, s3.Region, logger)
		if err != nil {
			return nil, err
		}
		resolver.Register("s3", objects)
	}
	logger.Info("image sources configured", "schemes", resolver.Schemes())
	return resolver, nil
}

func provideHarvestClient(cfg *config.Config, images *imagesource.Resolver, logger *slog.Logger) *harvestapi.Client {
	caller := upstream.NewCaller(cfg.Prediction.Timeout, logger)
	return harvestapi.NewClient(cfg.Prediction.BaseURL, caller, images, logger)
}

func provideWeatherClient(cfg *config.Config, logger *slog.Logger) *openweather.Client {
	caller := upstream.NewCaller(cfg.Weather.Timeout, logger)
	return openweather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Units, caller, logger)
}

func provideCapabilities(cfg *config.Config, logger *slog.Logger) *capability.Static {
	var pos *domaincap.Coordinates
	if cfg.Capability.Latitude != nil && cfg.Capability.Longitude != nil {
		pos = &domaincap.Coordinates{Latitude: *cfg.Capability.Latitude, Longitude: *cfg.Capability.Longitude}
	}
	return capability.NewStatic(capability.Config{
		Location: cfg.Capability.Location,
		Camera:   cfg.Capability.Camera,
		Position: pos,
	}, logger)
}

func provideDisplayConfig(cfg *config.Config) (harvest.DisplayConfig, error) {
	loc, err := cfg.Display.Location()
	if err != nil {
		return harvest.DisplayConfig{}, err
	}
	display := harvest.DefaultDisplayConfig()
	display.Location = loc
	if cfg.Display.TimestampLayout != "" {
		display.TimestampLayout = cfg.Display.TimestampLayout
	}
	if cfg.Display.DateLabelLayout != "" {
		display.DateLabelLayout = cfg.Display.DateLabelLayout
	}
	if cfg.Display.Unavailable != "" {
		display.Unavailable = cfg.Display.Unavailable
	}
	return display, nil
}

// provideBroadcast returns nil when the notice bus is disabled or
// unreachable; sessions then only keep notices in their own inbox.
func provideBroadcast(cfg *config.Config, logger *slog.Logger) notice.Notifier {
	vcfg := cfg.Notices.Valkey
	if !vcfg.Enabled {
		return nil
	}
	client, err := noticebus.NewValkeyClient(vcfg.Addr, vcfg.Password, vcfg.DB)
	if err != nil {
		logger.Error("failed to create valkey client, notices stay local", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, notices stay local", "error", err)
		client.Close()
		return nil
	}
	logger.Info("valkey notice bus enabled", "addr", vcfg.Addr)
	return noticebus.NewValkeyPublisher(client, vcfg.ChannelPrefix, logger)
}

func provideSessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Secret:      cfg.Session.TokenSecret,
		TokenTTL:    cfg.Session.TokenTTL,
		IdleTimeout: cfg.Session.IdleTimeout,
		InboxSize:   cfg.Session.InboxSize,
	}
}

func provideSessionDependencies(
	prediction harvest.PredictionClient,
	weatherClient weather.Client,
	capabilities domaincap.Provider,
	broadcast notice.Notifier,
	display harvest.DisplayConfig,
	logger *slog.Logger,
) session.Dependencies {
	return session.Dependencies{
		Prediction:   prediction,
		Weather:      weatherClient,
		Capabilities: capabilities,
		Broadcast:    broadcast,
		Display:      display,
		Logger:       logger,
	}
}
