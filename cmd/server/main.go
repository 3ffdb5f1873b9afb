package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gridbound/server/handlers"
	"gridbound/server/models"
	"gridbound/server/persistence"
	"gridbound/server/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin during development
		// In production, restrict this to your client's domain
		return true
	},
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var db persistence.Storage
	var err error
	if os.Getenv("DB_TYPE") == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			dsn = "host=localhost user=gridbound password=gridbound dbname=gridbound sslmode=disable"
		}
		db, err = persistence.NewPostgresStore(dsn)
		log.Info().Msg("using PostgreSQL persistence")
	} else {
		dbFile := os.Getenv("DB_FILE")
		if dbFile == "" {
			dbFile = "stats.json"
		}
		db, err = persistence.NewJSONStore(dbFile)
		log.Info().Str("file", dbFile).Msg("using JSON persistence")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize persistence")
	}
	defer db.Close()

	manager := handlers.NewClientManager()
	engine := services.NewEngine(models.DefaultGameConfig(), services.NewRand(), manager, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Virtual.Run(ctx)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("failed to upgrade connection")
			return
		}
		handlers.HandleClientConnection(conn, engine, manager)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Msg("server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
