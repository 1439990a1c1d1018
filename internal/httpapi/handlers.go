package httpapi

import (
	"errors"
	"io"
	"net"
	"net/http"

	"restkv/internal/kv"
	"restkv/internal/ratelimit"
)

// Homepage is served for any request no route claims.
const Homepage = "https://github.com/ahxxm/restkv"

type handlers struct {
	svc          *kv.Service
	maxBodyBytes int64
	limiter      *ratelimit.Limiter // nil disables limiting
}

func (h *handlers) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /new", h.newToken)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("GET /keys/{token}", h.listKeys)
	mux.HandleFunc("GET /{token}/{key}", h.readValue)
	mux.HandleFunc("POST /{token}/{key}", h.writeValue)
	mux.HandleFunc("/", h.homepage)
	return mux
}

// Every failure below answers 200 with an empty body; clients tell
// success from failure by emptiness alone.

func (h *handlers) newToken(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(clientIP(r)) {
		requestLogger(r).Info("token issuance rate limited", "client", clientIP(r))
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	token, err := h.svc.Tokens.Issue()
	if err != nil {
		fail(w, r, "issue token", err)
		return
	}
	writeText(w, token)
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	writeText(w, h.svc.Stats.Stats().String())
}

func (h *handlers) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.Values.ListKeys(r.PathValue("token"))
	if err != nil {
		fail(w, r, "list keys", err)
		return
	}
	writeText(w, kv.FormatKeys(keys))
}

func (h *handlers) readValue(w http.ResponseWriter, r *http.Request) {
	val, err := h.svc.Values.Read(r.PathValue("token"), r.PathValue("key"))
	if err != nil {
		fail(w, r, "read value", err)
		return
	}
	writeText(w, val)
}

func (h *handlers) writeValue(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			requestLogger(r).Debug("request body too large", "limit", tooLarge.Limit)
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		fail(w, r, "read body", err)
		return
	}
	key := r.PathValue("key")
	if err := h.svc.Values.Write(r.PathValue("token"), key, body); err != nil {
		fail(w, r, "write value", err)
		return
	}
	writeText(w, key)
}

func (h *handlers) homepage(w http.ResponseWriter, r *http.Request) {
	writeText(w, Homepage)
}

func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	requestLogger(r).Debug("request failed", "op", op, "err", err)
	writeText(w, "")
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
