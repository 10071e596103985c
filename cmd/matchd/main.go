package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndrandal/matchbook/internal/api"
	"github.com/ndrandal/matchbook/internal/archive"
	"github.com/ndrandal/matchbook/internal/config"
	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/eventlog"
	"github.com/ndrandal/matchbook/internal/exchange"
	"github.com/ndrandal/matchbook/internal/persist"
	"github.com/ndrandal/matchbook/internal/session"
	"github.com/ndrandal/matchbook/internal/symbol"
)

func main() {
	cfg := config.Load()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("matchbook server starting")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	// Symbols
	syms := symbol.Defaults()
	log.Printf("loaded %d symbols", len(syms))

	// Event pipeline
	sinks, err := eventlog.OpenSinks(cfg.LogDir)
	if err != nil {
		log.Fatalf("open event logs: %v", err)
	}
	defer sinks.Close()
	writer := eventlog.NewWriter(sinks, cfg.EventQueueSize)

	// MongoDB (optional)
	var store *persist.Store
	var reader persist.TradeReader
	if cfg.MongoURI != "" {
		store, err = persist.NewStore(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer store.Close(context.Background())

		if err := store.Migrate(ctx); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		reader = persist.NewMongoTradeReader(store.DB())
	} else {
		log.Println("trade persistence disabled (no -mongo-uri)")
	}

	// Session manager for live streaming
	mgr := session.NewManager(syms, cfg.SendBufferSize)

	// Fan events from the writer's consumer to streaming and persistence
	writer.OnOrder = mgr.BroadcastOrder
	if store != nil {
		tradeWriter := persist.NewTradeWriter(store, cfg.TradeBufferSize)
		go tradeWriter.Run(ctx)
		writer.OnTrade = func(ev engine.TradeEvent) {
			mgr.BroadcastTrade(ev)
			tradeWriter.Enqueue(ev)
		}
	} else {
		writer.OnTrade = mgr.BroadcastTrade
	}

	// Exchange
	ex, err := exchange.New(symbol.Tickers(syms), cfg.Workers, writer)
	if err != nil {
		log.Fatalf("create exchange: %v", err)
	}
	log.Printf("exchange ready: %d symbols", len(syms))

	// Start trade retention pruner
	if store != nil {
		go persist.RunRetention(ctx, store, cfg.TradeRetentionDays)
	}

	// Start trade archiver (opt-in)
	if store != nil && cfg.ArchiveDir != "" {
		archiver := archive.New(store.DB(), cfg.ArchiveDir, cfg.ArchiveMaxGB, cfg.ArchiveIntervalHours, cfg.ArchiveAfterHours)
		go archiver.Run(ctx)
	}

	// HTTP/WebSocket server
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", session.Handler(mgr))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","clients":%d,"symbols":%d,"processed":%d}`,
			mgr.ClientCount(), len(syms), ex.Processed())
	})

	apiServer := api.NewServer(ex, reader, writer, mgr, syms)
	apiServer.Register(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("order entry: http://%s/api/orders", addr)
	log.Printf("event stream: ws://%s/stream", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	// Drain the matching path, then the event pipeline.
	ex.Shutdown()
	writer.Close()

	log.Println("matchbook server stopped")
}
