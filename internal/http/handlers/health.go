package handlers

import (
	"net/http"
)

// Health is a liveness probe; it deliberately touches neither the database
// nor the storage provider.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
