package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swagat-panda/VocalWeaver/internal/audio"
	"github.com/swagat-panda/VocalWeaver/internal/bus"
	"github.com/swagat-panda/VocalWeaver/internal/config"
	"github.com/swagat-panda/VocalWeaver/internal/debugsink"
	"github.com/swagat-panda/VocalWeaver/internal/eventstore"
	"github.com/swagat-panda/VocalWeaver/internal/natsserver"
	"github.com/swagat-panda/VocalWeaver/internal/server"
	"github.com/swagat-panda/VocalWeaver/internal/session"
	"github.com/swagat-panda/VocalWeaver/internal/stt"
	"github.com/swagat-panda/VocalWeaver/internal/tts"
	"github.com/swagat-panda/VocalWeaver/internal/voice"
)

// Runtime assembles the pipeline from config and runs the HTTP surface
// until the context is cancelled.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	var embedded *natsserver.EmbeddedServer
	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded bus: %w", err)
		}
		busCfg := r.cfg.Bus
		if embedded != nil {
			busCfg.Servers = []string{embedded.ClientURL()}
		}
		busClient, err = bus.Connect(ctx, busCfg, r.logger)
		if err != nil {
			embedded.Shutdown()
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
	}

	store, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}

	voices, err := voice.NewRegistry(r.cfg.Voices)
	if err != nil {
		return fmt.Errorf("failed to build voice registry: %w", err)
	}

	transcoder, err := audio.NewTranscoder(r.cfg.Audio)
	if err != nil {
		return fmt.Errorf("failed to build transcoder: %w", err)
	}
	recognizer, err := stt.New(r.cfg.STT, r.cfg.Audio)
	if err != nil {
		return fmt.Errorf("failed to build recognizer: %w", err)
	}
	synth, err := tts.New(r.cfg.TTS)
	if err != nil {
		return fmt.Errorf("failed to build synthesizer: %w", err)
	}

	sink := debugsink.NewNopSink()
	if r.cfg.Debug.Enabled {
		sink, err = debugsink.NewFileSink(r.cfg.Debug.Dir, r.logger)
		if err != nil {
			return fmt.Errorf("failed to create debug sink: %w", err)
		}
		r.logger.Info("debug audio capture enabled", slog.String("dir", r.cfg.Debug.Dir))
	}

	manager := session.NewManager(session.Deps{
		Transcoder: transcoder,
		Recognizer: recognizer,
		Synth:      synth,
		Voices:     voices,
		Sink:       sink,
		Observer:   newRecorder(store, busClient, r.logger),
		Canonical: audio.Format{
			SampleRate: r.cfg.Audio.SampleRate,
			Channels:   r.cfg.Audio.Channels,
			BitDepth:   r.cfg.Audio.BitDepth,
		},
		Timeout: time.Duration(r.cfg.Pipeline.RequestTimeoutMS) * time.Millisecond,
		Debug:   r.cfg.Debug.Enabled,
	}, r.logger)

	ws := server.New(manager, voices, r.cfg.Audio.DefaultFormat, r.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/ws", ws.HandleWS)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("default_voice", voices.Default()),
		slog.Int("voices", len(voices.IDs())))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	// In-flight requests run to completion even though their results
	// have nowhere to go.
	manager.Drain()

	busClient.Close()
	embedded.Shutdown()
	if err := store.Close(); err != nil {
		r.logger.Error("event store close error", slog.String("error", err.Error()))
	}

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
