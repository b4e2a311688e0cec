package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Workplaces *WorkplaceHandler
	Shifts     *ShiftHandler
	Rules      *RuleHandler
	Calendar   *CalendarHandler

	// Sessions guards every route except login, logout, health and metrics.
	// A nil validator leaves the routes unguarded.
	Sessions SessionValidator
	Health   HealthChecker
	// MetricsHandler is served on GET /metrics when set.
	MetricsHandler http.Handler
	// Instrument wraps the mux directly so it observes the matched route pattern.
	Instrument func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
	Logger     *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.Sessions != nil {
		guard := RequireSession(cfg.Sessions, cfg.Logger)
		protect = func(h http.HandlerFunc) http.Handler { return guard(h) }
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		serveHealth(w, r, cfg.Health, cfg.Logger)
	})

	if cfg.MetricsHandler != nil {
		mux.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	if cfg.Workplaces != nil {
		mux.Handle("/workplaces", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Workplaces.List(w, r)
			case http.MethodPost:
				cfg.Workplaces.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/workplaces/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPut:
				cfg.Workplaces.Update(w, r)
			case http.MethodDelete:
				cfg.Workplaces.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Shifts != nil {
		mux.Handle("/shifts", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Shifts.List(w, r)
			case http.MethodPost:
				cfg.Shifts.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/shifts/export", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Shifts.Export(w, r)
		}))
		mux.Handle("/shifts/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPut:
				cfg.Shifts.Update(w, r)
			case http.MethodDelete:
				cfg.Shifts.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		}))
		mux.Handle("/shifts/{id}/signup", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				cfg.Shifts.SignUp(w, r)
			case http.MethodDelete:
				cfg.Shifts.Cancel(w, r)
			default:
				methodNotAllowed(w, http.MethodPost, http.MethodDelete)
			}
		}))
	}

	if cfg.Rules != nil {
		mux.Handle("/rules", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rules.List(w, r)
			case http.MethodPost:
				cfg.Rules.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/rules/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Rules.Delete(w, r)
		}))
		mux.Handle("/rules/{id}/materialize", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Rules.Materialize(w, r)
		}))
	}

	if cfg.Users != nil {
		mux.Handle("/users", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.List(w, r)
			case http.MethodPost:
				cfg.Users.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/users/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPut:
				cfg.Users.Update(w, r)
			case http.MethodDelete:
				cfg.Users.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Calendar != nil {
		mux.Handle("/calendar", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Calendar.Month(w, r)
		}))
	}

	var handler http.Handler = mux
	if cfg.Instrument != nil {
		handler = cfg.Instrument(handler)
	}
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}

func serveHealth(w http.ResponseWriter, r *http.Request, checker HealthChecker, logger *slog.Logger) {
	responder := newResponder(logger)
	if checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := checker.Ping(ctx); err != nil {
			responder.loggerFor(r.Context()).WarnContext(r.Context(), "health check failed", "error", err)
			responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
