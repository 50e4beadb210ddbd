package api

import (
	"encoding/json"
	"net/http"

	"roomserve/internal/metrics"
)

const snapshotCacheKey = "roomserve:snapshot"

// handleSnapshot serves the full client payload: room catalog, reservation
// list, today's merged timeline and per-room in-use flags. When a cache
// client is configured the encoded payload is held briefly so dashboard
// polling does not hit the store on every tick; cache failures fall through
// to a direct build.
// GET /api/snapshot
func (s *HTTPServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("snapshot")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(r.Context(), snapshotCacheKey).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
	}

	snap, err := s.engine.Snapshot(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if s.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			if err := s.cache.Set(r.Context(), snapshotCacheKey, data, s.snapshotTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("snapshot cache write failed")
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	writeJSON(w, http.StatusOK, snap)
}
