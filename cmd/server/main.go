package main

import (
	"context"
	"net/http"
	"os"

	webAdapter "invoice-ledger/internal/adapters/web"
	"invoice-ledger/internal/app"
	"invoice-ledger/internal/core"
	"invoice-ledger/internal/db"
	"invoice-ledger/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Setup()
	log := logger.WithComponent("server")

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	contactService := core.NewContactService(pool)
	documentService := core.NewDocumentService(pool)
	paymentService := core.NewPaymentService(pool)
	creditNoteService := core.NewCreditNoteService(pool)

	svc := app.NewAppService(contactService, documentService, paymentService, creditNoteService)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, logger.WithComponent("web"))

	log.Info().Str("port", port).Msg("server starting")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
