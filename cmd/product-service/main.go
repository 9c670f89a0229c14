package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/app"
	"github.com/rs/zerolog/log"
)

func main() {
	conf := config.CreateNewConfig("8000")
	app.InitLogger(conf.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	productApp := &app.ProductApp{Config: conf}
	if err := productApp.Init(ctx); err != nil {
		log.Fatal().Err(err).Str("component", "main").Msg("failed to initialize product service")
	}

	go func() {
		if err := productApp.Start(); err != nil {
			log.Error().Err(err).Str("component", "main").Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := productApp.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Str("component", "main").Msg("unclean shutdown")
	}
}
