package server

import (
	"net"
	"net/http"
	"time"

	"github.com/arjn/leetrack/internal/logger"
	"github.com/arjn/leetrack/pkg/tracker"
)

// visitorMiddleware records who hits the dashboard API. The store write is
// fire-and-forget: a slow or failing log must never delay the response.
func (s *Server) visitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visit := tracker.Visit{
			Time:      time.Now().UTC(),
			IP:        clientIP(r),
			Method:    r.Method,
			Path:      r.URL.Path,
			UserAgent: r.UserAgent(),
			Referer:   r.Referer(),
		}
		visitsTotal.WithLabelValues(r.URL.Path).Inc()

		go func() {
			if err := s.store.LogVisit(visit); err != nil {
				logger.Warn("Failed to log visit", "path", visit.Path, "error", err)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
