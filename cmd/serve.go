package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/civilsoul/offlined/core"
	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/internal/host"
	"github.com/civilsoul/offlined/internal/metrics"
	"github.com/civilsoul/offlined/internal/upstream"
	"github.com/civilsoul/offlined/internal/webchannel"
	"github.com/civilsoul/offlined/schema"
)

// shutdownGrace bounds how long in-flight requests may run during shutdown.
const shutdownGrace = 10 * time.Second

// maxInterceptBody bounds a buffered request body.
const maxInterceptBody = 16 << 20

// serveCmd runs the agent as a local daemon.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the offline resilience agent",
	Long: `Run the agent as a local daemon.

The agent installs its cache partitions, activates, and then intercepts
client traffic on the listen address. Control endpoints:

  /ws      - messaging channel for foreground instances (WebSocket)
  /push    - push payload intake (POST)
  /sync    - sync trigger intake (POST, category parameter)
  /queue   - offline mutation intake (POST)
  /metrics - Prometheus metrics
  /healthz - liveness probe

Every other path is intercepted, classified, and served by the caching
strategies.

Examples:
  # Serve with defaults (SQLite store, loopback listener)
  offlined serve

  # Serve against a staging origin
  offlined serve --upstream https://staging.civilsoul.org`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe(rootCtx)
	},
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	m := metrics.New()
	hub := webchannel.NewHub(log)
	hub.OnCountChange = m.SetConnectedClients

	logHost := host.NewLogHost(log)
	hub.OnConnect = func(id, location string) {
		logHost.Track(contract.Instance{ID: id, URL: location})
	}
	hub.OnDisconnect = logHost.Untrack

	fetch := upstream.NewClient(cfg.UpstreamURL, cfg.NetworkTimeout)

	agent := core.NewAgent(core.AgentDeps{
		Store:   storeManager,
		Fetch:   fetch,
		Host:    logHost,
		Channel: hub,
		Metrics: m,
		Log:     log,
		Config:  cfg,
	})
	defer func() {
		if err := storeManager.Close(); err != nil {
			log.Warn("store close failed", "error", err)
		}
	}()

	hub.OnMessage = func(msg schema.ClientMessage) {
		if err := agent.HandleMessage(msg); err != nil {
			log.Warn("client message handling failed", "type", msg.Type, "error", err)
		}
	}
	hub.NotifyFallback = func(msg schema.ClientMessage) {
		var n schema.NotificationRequest
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			return
		}
		_ = logHost.ShowNotification(&n)
	}

	if err := agent.Install(); err != nil {
		return err
	}
	if err := agent.Activate(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/push", handlePush(agent))
	mux.HandleFunc("/sync", handleSync(agent))
	mux.HandleFunc("/queue", handleQueue(agent))
	mux.HandleFunc("/", handleIntercept(agent, log))

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("agent listening", "addr", cfg.ListenAddr, "upstream", cfg.UpstreamURL.String(), "version", cfg.VersionTag)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "error", err)
	}
	hub.Close()
	agent.Wait()
	return nil
}

// handleIntercept serves intercepted client traffic through the agent.
func handleIntercept(agent *core.Agent, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxInterceptBody))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		req := &schema.Request{
			Method: r.Method,
			URL:    r.URL.RequestURI(),
			Header: r.Header,
			Body:   body,
		}

		resp, class, err := agent.HandleRequest(r.Context(), req)
		if err != nil {
			log.Info("request failed", "method", r.Method, "url", req.URL, "class", class, "error", err)
			http.Error(w, "upstream unreachable", http.StatusBadGateway)
			return
		}

		for key, values := range resp.Header {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Body)
	}
}

// handlePush accepts raw push payloads.
func handlePush(agent *core.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxInterceptBody))
		if err != nil {
			http.Error(w, "failed to read push body", http.StatusBadRequest)
			return
		}
		if err := agent.HandlePush(body); err != nil {
			http.Error(w, "push handling failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// handleSync accepts sync triggers. The category rides in the query
// string; an unrecognized category is acknowledged without a drain.
func handleSync(agent *core.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tag := r.URL.Query().Get("category")
		if _, ok := schema.ParseQueueCategory(tag); !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		result := agent.HandleSync(r.Context(), tag)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

// queueIntake is the POST /queue body.
type queueIntake struct {
	Category string          `json:"category"`
	Type     string          `json:"type,omitempty"`
	Token    string          `json:"token,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// handleQueue accepts offline mutations for later replay.
func handleQueue(agent *core.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var intake queueIntake
		if err := json.NewDecoder(io.LimitReader(r.Body, maxInterceptBody)).Decode(&intake); err != nil {
			http.Error(w, "invalid queue intake body", http.StatusBadRequest)
			return
		}
		category, ok := schema.ParseQueueCategory(intake.Category)
		if !ok {
			http.Error(w, "unrecognized queue category", http.StatusBadRequest)
			return
		}
		if len(intake.Data) == 0 || !json.Valid(intake.Data) {
			http.Error(w, "data must be valid JSON", http.StatusBadRequest)
			return
		}

		id, err := agent.EnqueueMutation(category, intake.Type, intake.Token, intake.Data)
		if err != nil {
			http.Error(w, "failed to enqueue mutation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]int64{"id": id})
	}
}
