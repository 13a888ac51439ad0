// Package api собирает HTTP-маршруты сервиса
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	clearSavesHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/clear_saves"
	getPendingSavesHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/get_pending_saves"
	retrySavesHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/retry_saves"
	saveOperationHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/save_operation"
	savesStreamHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/saves_stream"
	setConnectivityHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/set_connectivity"
	signInHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/sign_in"
	signOutHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/sign_out"
	signalVisibleHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/signal_visible"
	"github.com/m04kA/SMC-SaveSync/internal/api/middleware"
	"github.com/m04kA/SMC-SaveSync/internal/auth"
	"github.com/m04kA/SMC-SaveSync/internal/connectivity"
	"github.com/m04kA/SMC-SaveSync/internal/service/savequeue"
	"github.com/m04kA/SMC-SaveSync/pkg/metrics"
)

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Deps зависимости маршрутов
type Deps struct {
	Manager *savequeue.Manager
	Switch  *connectivity.Switch
	Session *auth.Session

	// Metrics nil - метрики выключены
	Metrics     *metrics.Metrics
	MetricsPath string

	// CheckOrigin для websocket, nil - только тот же origin
	CheckOrigin func(r *http.Request) bool
}

// NewRouter регистрирует все маршруты
func NewRouter(deps Deps, log Logger) *mux.Router {
	saveOperation := saveOperationHandler.NewHandler(deps.Manager, log)
	getPendingSaves := getPendingSavesHandler.NewHandler(deps.Manager, log)
	retrySaves := retrySavesHandler.NewHandler(deps.Manager, log)
	clearSaves := clearSavesHandler.NewHandler(deps.Manager, log)
	savesStream := savesStreamHandler.NewHandler(deps.Manager, log, deps.CheckOrigin)
	setConnectivity := setConnectivityHandler.NewHandler(deps.Switch, log)
	signalVisible := signalVisibleHandler.NewHandler(deps.Switch)
	signIn := signInHandler.NewHandler(deps.Session, deps.Manager, log)
	signOut := signOutHandler.NewHandler(deps.Session, log)

	r := mux.NewRouter()

	if deps.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(deps.Metrics))
		r.Handle(deps.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// --- Очередь сохранений ---
	// stream регистрируется до {type}, иначе GET совпадёт не с тем маршрутом
	api.HandleFunc("/saves/stream", savesStream.Handle).Methods(http.MethodGet)
	api.HandleFunc("/saves/retry", retrySaves.Handle).Methods(http.MethodPost)
	api.HandleFunc("/saves/{type}", saveOperation.Handle).Methods(http.MethodPost)
	api.HandleFunc("/saves", getPendingSaves.Handle).Methods(http.MethodGet)
	api.HandleFunc("/saves", clearSaves.Handle).Methods(http.MethodDelete)

	// --- Связь с сервером ---
	api.HandleFunc("/connectivity", setConnectivity.Handle).Methods(http.MethodPut)
	api.HandleFunc("/connectivity/visible", signalVisible.Handle).Methods(http.MethodPost)

	// --- Сессия ---
	api.HandleFunc("/session", signIn.Handle).Methods(http.MethodPut)
	api.HandleFunc("/session", signOut.Handle).Methods(http.MethodDelete)

	return r
}
