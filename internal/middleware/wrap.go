package middleware

import "net/http"

// ResponseRecorder wraps ResponseWriter, captures the status code, and runs
// a hook just before the first byte of the response is committed. The hook
// lets the session middleware set its cookie while headers are still open.
type ResponseRecorder struct {
	http.ResponseWriter
	status      int
	wrote       bool
	beforeWrite func(http.ResponseWriter)
}

func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, status: http.StatusOK}
}

// SetBeforeWrite registers fn to run once, before headers are flushed.
func (rw *ResponseRecorder) SetBeforeWrite(fn func(http.ResponseWriter)) {
	rw.beforeWrite = fn
}

func (rw *ResponseRecorder) WriteHeader(statusCode int) {
	rw.flushBefore()
	rw.status = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *ResponseRecorder) Write(b []byte) (int, error) {
	rw.flushBefore()
	return rw.ResponseWriter.Write(b)
}

func (rw *ResponseRecorder) flushBefore() {
	if rw.wrote {
		return
	}
	rw.wrote = true
	if rw.beforeWrite != nil {
		rw.beforeWrite(rw.ResponseWriter)
	}
}

func (rw *ResponseRecorder) Status() int { return rw.status }
