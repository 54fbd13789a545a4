package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/cluster"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/models"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/service"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/storage"
)

// Pinger reports relational connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClusterHealth is the slice of the cluster adapter the handlers need.
type ClusterHealth interface {
	Ready() bool
	State() cluster.State
}

// Handlers owns every route. All dependencies arrive by interface from the
// composition root; nothing here reaches for globals.
type Handlers struct {
	sqlStore   storage.UserStore
	sqlPinger  Pinger
	redisStore service.ClusterUserStore
	health     ClusterHealth
	users      *service.Users
}

func NewHandlers(
	sqlStore storage.UserStore,
	sqlPinger Pinger,
	redisStore service.ClusterUserStore,
	health ClusterHealth,
	users *service.Users,
) *Handlers {
	return &Handlers{
		sqlStore:   sqlStore,
		sqlPinger:  sqlPinger,
		redisStore: redisStore,
		health:     health,
		users:      users,
	}
}

// Router builds the full route table.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", h.handleHealth).Methods(http.MethodGet)

	h.registerUserRoutes(r, "/api/mysql/users", h.sqlStore, nil)
	h.registerUserRoutes(r, "/api/redis/users", h.redisStore, h.redisGuard)

	r.HandleFunc("/api/mysql-to-redis", h.handleCopySQLToRedis).Methods(http.MethodPost)
	r.HandleFunc("/api/redis-to-mysql", h.handleCopyRedisToSQL).Methods(http.MethodPost)
	r.HandleFunc("/api/redis/cleanup-duplicates", h.handleCleanupDuplicates).Methods(http.MethodPost)

	return r
}

// redisGuard refuses redis-backed routes outright while the adapter is not
// ready, before any store call is attempted.
func (h *Handlers) redisGuard() error {
	if !h.health.Ready() {
		return storage.ErrNotReady
	}
	return nil
}

func (h *Handlers) registerUserRoutes(r *mux.Router, prefix string, store storage.UserStore, guard func() error) {
	r.HandleFunc(prefix, h.listUsers(store, guard)).Methods(http.MethodGet)
	r.HandleFunc(prefix, h.createUser(store, guard)).Methods(http.MethodPost)
	r.HandleFunc(prefix+"/{id}", h.getUser(store, guard)).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/{id}", h.updateUser(store, guard)).Methods(http.MethodPut)
	r.HandleFunc(prefix+"/{id}", h.deleteUser(store, guard)).Methods(http.MethodDelete)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"mysql": "connected",
		"redis": h.health.State().String(),
	}
	if err := h.sqlPinger.Ping(r.Context()); err != nil {
		status["mysql"] = "error: " + err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) listUsers(store storage.UserStore, guard func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkGuard(guard); err != nil {
			writeError(w, r, err)
			return
		}
		records, err := store.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if records == nil {
			records = []models.UserRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (h *Handlers) getUser(store storage.UserStore, guard func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkGuard(guard); err != nil {
			writeError(w, r, err)
			return
		}
		rec, err := store.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handlers) createUser(store storage.UserStore, guard func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkGuard(guard); err != nil {
			writeError(w, r, err)
			return
		}
		input, err := decodeInput(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rec := input.Record()
		if err := store.Insert(r.Context(), &rec); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (h *Handlers) updateUser(store storage.UserStore, guard func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkGuard(guard); err != nil {
			writeError(w, r, err)
			return
		}
		input, err := decodeInput(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id := mux.Vars(r)["id"]
		rec := input.Record()
		if err := store.Update(r.Context(), id, &rec); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handlers) deleteUser(store storage.UserStore, guard func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkGuard(guard); err != nil {
			writeError(w, r, err)
			return
		}
		if err := store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
	}
}

func (h *Handlers) handleCopySQLToRedis(w http.ResponseWriter, r *http.Request) {
	if err := h.redisGuard(); err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.users.CopySQLToRedis(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "MySQL users copied to Redis",
		"total":   report.Total,
		"success": report.Success,
	})
}

func (h *Handlers) handleCopyRedisToSQL(w http.ResponseWriter, r *http.Request) {
	if err := h.redisGuard(); err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.users.CopyRedisToSQL(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Redis users copied to MySQL",
		"total":   report.Total,
		"success": report.Success,
		"errors":  report.Errors,
	})
}

func (h *Handlers) handleCleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	if err := h.redisGuard(); err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.users.CleanupDuplicates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Duplicate cleanup completed",
		"removed":    report.Removed,
		"reassigned": report.Reassigned,
		"remaining":  report.Remaining,
	})
}

func checkGuard(guard func() error) error {
	if guard == nil {
		return nil
	}
	return guard()
}

func decodeInput(r *http.Request) (*models.UserInput, error) {
	var input models.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return nil, &models.ValidationError{Reason: "invalid JSON body"}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return &input, nil
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto status codes and always answers
// with a JSON {"error": ...} body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case models.IsValidation(err):
		code = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, storage.ErrDuplicateEmail):
		code = http.StatusConflict
		msg = "Email already exists"
	case errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
		msg = "User not found"
	case errors.Is(err, storage.ErrNotReady):
		code = http.StatusServiceUnavailable
		msg = "Redis cluster not ready"
	case errors.Is(err, storage.ErrClusterUnavailable):
		code = http.StatusServiceUnavailable
		msg = "Redis cluster unavailable"
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}

	writeJSON(w, code, map[string]string{"error": msg})
}
