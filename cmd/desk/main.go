package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btcdesk/config"
	"btcdesk/internal/ai"
	"btcdesk/internal/engine"
	"btcdesk/internal/exchange"
	"btcdesk/internal/gateway"
	"btcdesk/internal/notification"
	platformhttp "btcdesk/internal/platform/http"
	"btcdesk/internal/positions"
	"btcdesk/internal/scheduler"
	"btcdesk/internal/storage"
	"btcdesk/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading config failed")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := exchange.NewBinanceClient(cfg.Symbol)
	book := positions.NewBook(cfg.StartBalance)
	adapter := ai.NewAdapter(ai.NewClient(cfg.OpenAIAPIKey), cfg.Policy())
	hub := gateway.NewHub()

	opts := engine.Options{Hub: hub}

	if cfg.PostgresDSN != "" {
		db, err := storage.New(cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Connecting to Postgres failed")
		}
		defer db.Close()
		opts.History = db
	}

	if cfg.TelegramToken != "" {
		notifier, err := notification.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Error().Err(err).Msg("Telegram notifier unavailable")
		} else {
			opts.Notifier = notifier
		}
	}

	if cfg.TradingMode == "live" {
		httpClient := platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		})
		executor := exchange.NewBingXClient(cfg.BingXAPIKey, cfg.BingXSecretKey, bingxSymbol(cfg.Symbol), httpClient)
		if err := executor.TestConnectivity(ctx); err != nil {
			log.Fatal().Err(err).Msg("BingX connectivity test failed")
		}
		opts.Executor = executor
		log.Info().Msg("Live trading enabled")
	}

	eng := engine.New(cfg.Symbol, source, adapter, book, opts)

	sched := scheduler.New()
	sched.Start(ctx, scheduler.Task{Name: "candle_poll", Interval: cfg.CandlePoll, Run: eng.PollCandles})
	sched.Start(ctx, scheduler.Task{Name: "price_poll", Interval: cfg.PricePoll, Run: eng.PollPrice})
	sched.Start(ctx, scheduler.Task{Name: "ai_cycle", Interval: cfg.AICycle, Run: eng.AICycle})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: newRouter(eng, hub),
	}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown failed")
	}
	sched.Wait()
}

func newRouter(eng *engine.Engine, hub *gateway.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, eng.Positions())
	})
	mux.HandleFunc("/api/balance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]float64{"balance": eng.Balance()})
	})
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, eng.RecentEvents())
	})

	mux.HandleFunc("/api/ai/toggle", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Active bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		eng.SetAIActive(body.Active)
		writeJSON(w, map[string]bool{"active": eng.AIActive()})
	})

	mux.HandleFunc("/api/order", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Side     models.Side `json:"side"`
			Amount   float64     `json:"amount"`
			Leverage float64     `json:"leverage"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pos, err := eng.ManualOpen(body.Side, body.Amount, body.Leverage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, pos)
	})

	mux.HandleFunc("/api/close", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pos, err := eng.ManualClose(body.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, pos)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Encoding response failed")
	}
}

// bingxSymbol converts a Binance spot symbol to the BingX perpetual
// format, e.g. BTCUSDT -> BTC-USDT.
func bingxSymbol(symbol string) string {
	if strings.HasSuffix(symbol, "USDT") && !strings.Contains(symbol, "-") {
		return strings.TrimSuffix(symbol, "USDT") + "-USDT"
	}
	return symbol
}
