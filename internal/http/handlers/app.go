package handlers

import (
	"encoding/json"
	"net/http"

	"storyboard/internal/db"
	"storyboard/internal/infra"
	"storyboard/internal/storage"
)

// App carries the explicitly constructed dependencies every handler needs.
// There is no ambient global state; both processes build their own wiring.
type App struct {
	Q     *db.Queries
	Store *storage.FileStore
	Cfg   *infra.Config
	Log   infra.Logger
}

func NewApp(q *db.Queries, store *storage.FileStore, cfg *infra.Config, log infra.Logger) *App {
	return &App{Q: q, Store: store, Cfg: cfg, Log: log}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": map[string]string{"code": code, "message": message}})
}
