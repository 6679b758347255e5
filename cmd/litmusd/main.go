package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"litmus-ml/internal/boost"
	"litmus-ml/internal/cfg"
	"litmus-ml/internal/feed"
	"litmus-ml/internal/kitchen"
	"litmus-ml/internal/metrics"
	"litmus-ml/internal/model"
	"litmus-ml/internal/registry"
)

// pairState holds one pair's plugin, kitchen and rolling candle window.
type pairState struct {
	plugin    *model.Plugin
	dk        *kitchen.Kitchen
	klines    []feed.Kline
	trainedAt time.Time
}

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if c.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	startMetricsServer(ctx, c, cancel)

	store := initializeStore(c)
	if store != nil {
		defer store.Close()
	}

	reg, err := registry.New(c.ModelsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("model registry init failed")
	}

	rest := feed.NewREST(c.BaseURL, c.FeedTimeout)

	states := make(map[string]*pairState, len(c.Pairs))
	for _, pair := range c.Pairs {
		st, err := initialTrain(c, pair, rest, store, reg, mw)
		if err != nil {
			log.Fatal().Err(err).Str("pair", pair).Msg("initial training failed")
		}
		states[pair] = st
	}

	candles := make(chan feed.Candle, 64)
	errs := make(chan error, 32)

	ws := feed.NewWS(c.WsURL)
	go func() {
		if err := ws.Stream(ctx, c.Pairs, c.Interval, candles, errs, c.Ping); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("WebSocket stream terminated")
			cancel()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runLoop(ctx, c, states, candles, errs, m)
	}()

	waitForShutdown(ctx, cancel, &wg, states)
}

// initialTrain fetches history for a pair, trains a model and registers it.
func initialTrain(c cfg.Settings, pair string, rest *feed.Client, store *kitchen.Store, reg *registry.Registry, mw *metrics.Wrapper) (*pairState, error) {
	klines, err := rest.GetKlines(pair, c.Interval, c.TrainRows)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}

	raw, err := feed.FrameFromKlines(klines, c.LabelPeriod, c.LabelThresh)
	if err != nil {
		return nil, err
	}

	dk, err := kitchen.New(pair, kitchen.Config{
		SplitFraction: c.SplitFraction,
		WeightFactor:  c.WeightFactor,
	}, store)
	if err != nil {
		return nil, err
	}

	plugin := model.New(boost.Config{
		Estimators:   c.Estimators,
		LearningRate: c.LearningRate,
		MaxDepth:     c.MaxDepth,
		Patience:     c.Patience,
	}, mw)

	fitted, err := plugin.Train(raw, pair, dk)
	if err != nil {
		return nil, err
	}
	if err := dk.Flush(); err != nil {
		return nil, fmt.Errorf("persist pair data: %w", err)
	}

	if _, err := reg.Save(pair, fitted, plugin.FeatureList(), registry.Metrics{
		EvalLogLoss:     fitted.EvalLogLoss(),
		BestIteration:   fitted.BestIteration(),
		TrainingSamples: len(klines),
	}); err != nil {
		return nil, fmt.Errorf("register model: %w", err)
	}

	return &pairState{plugin: plugin, dk: dk, klines: klines, trainedAt: time.Now()}, nil
}

// runLoop consumes live candles and serves a prediction per closed candle.
func runLoop(ctx context.Context, c cfg.Settings, states map[string]*pairState, candles <-chan feed.Candle, errs <-chan error, m *metrics.Metrics) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if errors.Is(err, feed.ErrReconnect) {
				m.WSReconnects.Inc()
			} else {
				m.ErrorsTotal.Inc()
			}
			log.Warn().Err(err).Msg("feed error")
		case candle := <-candles:
			m.CandlesReceived.Inc()
			if !candle.Final {
				continue
			}
			st, ok := states[candle.Pair]
			if !ok {
				continue
			}

			st.klines = append(st.klines, candle.Kline)
			if len(st.klines) > c.TrainRows {
				st.klines = st.klines[len(st.klines)-c.TrainRows:]
			}
			m.ModelAge.Set(time.Since(st.trainedAt).Seconds())

			raw, err := feed.FrameFromKlines(st.klines, c.LabelPeriod, c.LabelThresh)
			if err != nil {
				m.ErrorsTotal.Inc()
				log.Error().Err(err).Str("pair", candle.Pair).Msg("frame build failed")
				continue
			}

			probs, doPredict, err := st.plugin.Predict(raw, st.dk, false)
			if err != nil {
				m.ErrorsTotal.Inc()
				log.Error().Err(err).Str("pair", candle.Pair).Msg("prediction failed")
				continue
			}

			last := probs.NumRows() - 1
			ev := log.Info().Str("pair", candle.Pair).Int("do_predict", doPredict[last])
			for _, class := range probs.Columns() {
				col, _ := probs.Column(class)
				ev = ev.Float64(class, col[last])
			}
			ev.Msg("prediction")
		}
	}
}

func initializeStore(c cfg.Settings) *kitchen.Store {
	if c.DataPath == "" {
		log.Info().Msg("DATA_PATH not set, pair data will not be persisted")
		return nil
	}
	store, err := kitchen.NewStore(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("kitchen store init failed")
	}
	return store
}

func startMetricsServer(ctx context.Context, c cfg.Settings, cancel context.CancelFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Int("port", c.MetricsPort).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
			cancel()
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, states map[string]*pairState) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()

	for pair, st := range states {
		if err := st.dk.Flush(); err != nil {
			log.Warn().Err(err).Str("pair", pair).Msg("failed to persist pair data on shutdown")
		}
	}
	log.Info().Msg("shutdown complete")
}
