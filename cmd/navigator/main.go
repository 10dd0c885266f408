package main

import (
	"context"
	"flag"

	"github.com/lintang-b-s/naviguide/pkg/directions"
	"github.com/lintang-b-s/naviguide/pkg/http"
	"github.com/lintang-b-s/naviguide/pkg/http/usecases"
	"github.com/lintang-b-s/naviguide/pkg/logger"
	"github.com/lintang-b-s/naviguide/pkg/navigator"
	"github.com/lintang-b-s/naviguide/pkg/tripstore"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"go.uber.org/zap"
)

var (
	configPath   = flag.String("config_path", "./data/", "directory containing config.yaml")
	tripDBPath   = flag.String("trip_db", "./data/trips.db", "sqlite trip log path, empty disables trip persistence")
	useRateLimit = flag.Bool("rate_limit", false, "rate limit the REST API")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	if err := util.ReadConfig(*configPath); err != nil {
		logger.Warn("config.yaml not loaded, running on defaults", zap.Error(err))
	}

	directionsClient, err := directions.NewClient(logger, directions.NewConfigFromViper())
	if err != nil {
		panic(err)
	}

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	var trips usecases.TripRecorder
	var store *tripstore.TripStore
	if *tripDBPath != "" {
		store, err = tripstore.NewTripStore(logger, *tripDBPath)
		if err != nil {
			panic(err)
		}
		if err = store.EnsureSchema(ctx); err != nil {
			panic(err)
		}
		trips = store
	}

	sessionService := usecases.NewSessionService(logger, directionsClient, trips,
		navigator.NewConfigFromViper())

	api := http.NewServer(logger)
	api.Use(ctx,
		logger, *useRateLimit, sessionService)

	signal := http.GracefulShutdown()

	logger.Info("naviguide Navigation Server Stopped", zap.String("signal", signal.String()))
	sessionService.CloseAll()
	if store != nil {
		store.Close()
	}
	cleanup()
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
