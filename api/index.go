package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/app"
	"github.com/wadjakorntonsri/tinyread/pkg/config"
	"github.com/wadjakorntonsri/tinyread/pkg/logger"
)

var mux http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	// On Vercel a local sqlite file is ephemeral; point DATABASE_URL at a
	// libsql or postgres database.
	a, err := app.New(context.Background(), cfg, logger.New(cfg.Log))
	if err != nil {
		panic(err)
	}
	mux = a.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
