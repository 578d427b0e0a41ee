package api

import (
	"net/http"

	"github.com/runterritory/server/internal/cache"
)

func handleHealth(store *cache.Cache) http.HandlerFunc {
	type response struct {
		Status       string `json:"status"`
		CacheEntries int    `json:"cache_entries"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		resp := response{Status: "ok"}
		if store != nil {
			resp.CacheEntries = store.Stats().FreshEntries
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
