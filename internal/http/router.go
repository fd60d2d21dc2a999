package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Sessions   *SessionHandler
	Placements *PlacementHandler
	Schedule   *ScheduleHandler
	Rooms      *RoomHandler

	// AdminOnly guards routes reserved for authenticated organizers:
	// withdrawal, placement mutations and logout. Proposal submission and
	// all read endpoints stay open.
	AdminOnly func(http.Handler) http.Handler

	// LoginLimiter throttles the credential endpoints only; the rest of the
	// API is never rate limited by it.
	LoginLimiter func(http.Handler) http.Handler

	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	adminOnly := cfg.AdminOnly
	if adminOnly == nil {
		adminOnly = func(next http.Handler) http.Handler { return next }
	}

	if cfg.Auth != nil {
		login := http.Handler(http.HandlerFunc(cfg.Auth.Login))
		logout := http.Handler(http.HandlerFunc(cfg.Auth.Logout))
		if cfg.LoginLimiter != nil {
			login = cfg.LoginLimiter(login)
			logout = cfg.LoginLimiter(logout)
		}

		mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			login.ServeHTTP(w, r)
		})
		mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			logout.ServeHTTP(w, r)
		})
	}

	if cfg.Sessions != nil {
		withdraw := adminOnly(http.HandlerFunc(cfg.Sessions.Delete))

		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}

			id, sub, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSessionID(r.Context(), id))

			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Sessions.Get(w, r)
				case http.MethodDelete:
					withdraw.ServeHTTP(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case "placement":
				if cfg.Placements == nil {
					http.NotFound(w, r)
					return
				}
				switch r.Method {
				case http.MethodPut:
					adminOnly(http.HandlerFunc(cfg.Placements.Put)).ServeHTTP(w, r)
				case http.MethodDelete:
					adminOnly(http.HandlerFunc(cfg.Placements.Delete)).ServeHTTP(w, r)
				default:
					methodNotAllowed(w, http.MethodPut, http.MethodDelete)
				}
			case "suggestions":
				if cfg.Placements == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Placements.Suggestions(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Schedule != nil {
		mux.HandleFunc("/schedule", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Schedule.Get(w, r)
		})
	}

	if cfg.Rooms != nil {
		mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Rooms.List(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
