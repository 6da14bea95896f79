// Package responsewriter lets middleware read the status code and body
// size of a response after the handler has run.
package responsewriter

import (
	"net/http"
)

// ResponseWriter records what went out through the wrapped writer.
type ResponseWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

// Wrap returns a recording writer for w. When w already records (an outer
// middleware wrapped it), it is returned as is so every layer of the chain
// sees the same status and size.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader forwards the first status code only, like net/http does.
func (w *ResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// StatusCode is the status sent, or 200 when nothing was written yet.
func (w *ResponseWriter) StatusCode() int { return w.status }

// Written reports whether the status line has been sent.
func (w *ResponseWriter) Written() bool { return w.wroteHeader }

// BytesWritten is the body size so far.
func (w *ResponseWriter) BytesWritten() int { return w.size }

// Flush implements http.Flusher when the underlying writer does.
func (w *ResponseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
