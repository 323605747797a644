package middleware

import (
	"fmt"
	"mime"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestMeta stores the client address and user agent for activity logs.
// It expects RealIP to have run first.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := auth.RequestMeta{IPAddress: ClientIP(r), UserAgent: r.UserAgent()}
		next.ServeHTTP(w, r.WithContext(auth.WithRequestMeta(r.Context(), meta)))
	})
}

// ClientIP strips the port from RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SecurityHeaders sets the response headers every API answer carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// BodyLimit caps request bodies at maxBytes. Multipart bodies are left to
// the upload handlers, which enforce per-file limits.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes && !isMultipart(r) {
				response.Error(w, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge,
					"Request body exceeds "+strconv.FormatInt(maxBytes, 10)+" bytes", nil)
				return
			}
			if r.Body != nil && !isMultipart(r) {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// Recoverer turns a panic into a logged 500.
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	recLog := log.Named("Recoverer")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				recLog.Error("Panic while serving request",
					zap.String("request_id", chimw.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("panic", fmt.Sprint(rec)),
					zap.ByteString("stack", debug.Stack()),
				)
				response.Error(w, http.StatusInternalServerError, response.CodeInternal, "Internal server error", nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
