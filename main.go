package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"wingman/app/config"
	"wingman/app/service/api"
	"wingman/app/service/conversation"
	"wingman/app/service/store"
	"wingman/app/service/venues"
	"wingman/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, store.New)
	do.Provide(di, venues.New)
	do.Provide(di, conversation.New)
	do.Provide(di, api.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go func() {
		if err := do.MustInvoke[*api.Service](di).Run(appCtx); err != nil {
			slog.Error("API server stopped", "error", err)
			cancel()
		}
	}()

	<-appCtx.Done()
}
