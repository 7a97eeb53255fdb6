//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/harvesta/companion/internal/bootstrap"
	domaincap "github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/harvest"
	"github.com/harvesta/companion/internal/domain/session"
	"github.com/harvesta/companion/internal/domain/weather"
	"github.com/harvesta/companion/internal/infra/capability"
	"github.com/harvesta/companion/internal/infra/config"
	"github.com/harvesta/companion/internal/infra/harvestapi"
	"github.com/harvesta/companion/internal/infra/weather/openweather"
	httpiface "github.com/harvesta/companion/internal/interface/http"
	"github.com/harvesta/companion/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideImageResolver,
		provideHarvestClient,
		provideWeatherClient,
		provideCapabilities,
		provideDisplayConfig,
		provideBroadcast,
		provideSessionConfig,
		provideSessionDependencies,
		session.NewRegistry,
		wire.Bind(new(harvest.PredictionClient), new(*harvestapi.Client)),
		wire.Bind(new(weather.Client), new(*openweather.Client)),
		wire.Bind(new(domaincap.Provider), new(*capability.Static)),
		wire.Bind(new(httpiface.SessionRegistry), new(*session.Registry)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
