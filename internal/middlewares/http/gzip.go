package http

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// GzipMiddleware compresses JSON responses for clients that accept gzip. The
// debug surface is read-only, so request-body decompression is not handled.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		gzw := gzip.NewWriter(w)
		defer gzw.Close()

		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, gzw: gzw}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gzw *gzip.Writer
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.gzw.Write(b)
}
