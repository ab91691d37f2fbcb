package voiceagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkerAddr      = ":8081"
	defaultShutdownTimeout = 10 * time.Second
)

// EntrypointFunc is invoked once per job. It should connect the job and run
// the agent until the session ends; a returned error marks the job failed.
type EntrypointFunc func(ctx context.Context, job *JobContext) error

type WorkerOptions struct {
	// Entrypoint is invoked for every job.
	Entrypoint EntrypointFunc
	// Addr is the listen address for room connections.
	Addr string
	// Logger receives worker and job logs. Jobs find it with zerolog.Ctx.
	Logger zerolog.Logger
	// ShutdownTimeout bounds how long Serve waits for running jobs on exit.
	ShutdownTimeout time.Duration
}

// Worker accepts room connections and runs one job per connection.
type Worker struct {
	opts     WorkerOptions
	upgrader websocket.Upgrader

	jobs   sync.WaitGroup
	active atomic.Int64
}

// NewWorker validates opts and creates a worker.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.Entrypoint == nil {
		return nil, errors.New("worker entrypoint is required")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultWorkerAddr
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Worker{
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Handler serves GET /rooms/{room} (websocket, one job per connection) and
// GET /healthz.
func (w *Worker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms/{room}", w.handleRoom)
	mux.HandleFunc("GET /healthz", w.handleHealth)
	return mux
}

// Serve listens on the configured address until ctx is cancelled, then
// stops accepting rooms and waits for running jobs.
func (w *Worker) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              w.opts.Addr,
		Handler:           w.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.opts.Logger.Info().Str("addr", w.opts.Addr).Msg("worker listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("worker listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("worker shutdown: %w", err)
		}
		w.waitJobs(shutdownCtx)
		return nil
	})
	return g.Wait()
}

// RunJob runs the entrypoint for job and leaves the room afterwards. Panics
// in the entrypoint fail the job instead of the worker. A job ended by ctx
// cancellation is logged as a normal end.
func (w *Worker) RunJob(ctx context.Context, job *JobContext) (err error) {
	logger := w.opts.Logger.With().Str("job_id", job.ID).Str("room", job.RoomName).Logger()
	ctx = logger.WithContext(ctx)

	w.active.Add(1)
	defer w.active.Add(-1)

	logger.Info().Msg("job started")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		if serr := job.shutdown(); serr != nil {
			logger.Debug().Err(serr).Msg("leave room")
		}
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info().Msg("job cancelled")
		case err != nil:
			logger.Error().Err(err).Msg("job failed")
		default:
			logger.Info().Msg("job finished")
		}
	}()

	return w.opts.Entrypoint(ctx, job)
}

func (w *Worker) handleRoom(rw http.ResponseWriter, r *http.Request) {
	roomName := r.PathValue("room")
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.opts.Logger.Warn().Err(err).Str("room", roomName).Msg("room upgrade failed")
		return
	}

	w.jobs.Add(1)
	defer w.jobs.Done()

	job := NewJobContext(roomName, newAcceptedConnector(conn, roomName))
	_ = w.RunJob(r.Context(), job)
}

func (w *Worker) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{
		"status":      "ok",
		"active_jobs": w.active.Load(),
	})
}

func (w *Worker) waitJobs(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		w.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.opts.Logger.Warn().Int64("active_jobs", w.active.Load()).Msg("shutdown timed out with jobs still running")
	}
}
