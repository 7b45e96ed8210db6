package middleware

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// CompressConfig tunes the brotli response compression.
type CompressConfig struct {
	Quality int
	// MinLength is the body size below which responses are sent as-is.
	MinLength int
	Skip      func(c *gin.Context) bool
}

var DefaultCompressConfig = CompressConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter buffers the body until MinLength is reached, then either switches
// to brotli for the rest of the response or, at the end, writes the small body raw.
type brotliWriter struct {
	gin.ResponseWriter
	cfg         CompressConfig
	buf         bytes.Buffer
	br          *brotli.Writer
	passthrough bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	switch {
	case w.br != nil:
		return w.br.Write(data)
	case w.passthrough:
		return w.ResponseWriter.Write(data)
	}

	w.buf.Write(data)
	if w.buf.Len() < w.cfg.MinLength {
		return len(data), nil
	}
	if err := w.start(); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// start commits to an encoding and drains the buffer into it.
func (w *brotliWriter) start() error {
	if alreadyCompressed(w.Header().Get("Content-Type")) {
		w.passthrough = true
	} else {
		w.Header().Set("Content-Encoding", "br")
		w.Header().Del("Content-Length")
		w.br = brotli.NewWriterLevel(w.ResponseWriter, w.cfg.Quality)
	}

	var err error
	if w.br != nil {
		_, err = w.br.Write(w.buf.Bytes())
	} else {
		_, err = w.ResponseWriter.Write(w.buf.Bytes())
	}
	w.buf.Reset()
	return err
}

func (w *brotliWriter) Flush() {
	if w.br == nil && !w.passthrough {
		w.passthrough = true
		_, _ = w.ResponseWriter.Write(w.buf.Bytes())
		w.buf.Reset()
	}
	if w.br != nil {
		_ = w.br.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) finish() error {
	if w.br != nil {
		return w.br.Close()
	}
	if w.buf.Len() > 0 {
		_, err := w.ResponseWriter.Write(w.buf.Bytes())
		w.buf.Reset()
		return err
	}
	return nil
}

// Compress brotli-encodes responses for clients that accept it.
func Compress(cfg CompressConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultCompressConfig.MinLength
	}

	return func(c *gin.Context) {
		// WebSocket handshakes must reach the hijacker unwrapped.
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") ||
			(cfg.Skip != nil && cfg.Skip(c)) ||
			!acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		w := &brotliWriter{ResponseWriter: c.Writer, cfg: cfg}
		c.Writer = w

		c.Next()

		if err := w.finish(); err != nil {
			_ = c.Error(err)
		}
	}
}

func alreadyCompressed(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") ||
		strings.HasPrefix(contentType, "application/zip") ||
		strings.HasPrefix(contentType, "application/gzip")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
