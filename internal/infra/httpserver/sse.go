package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var noDeadline time.Time

// sseWriter writes Server-Sent Events and flushes after each one. Write errors mean
// the client went away; the request context is canceled then and the run stops.
type sseWriter struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	err error
}

func (s *sseWriter) send(event string, v any) {
	if s.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.err = err
		return
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		s.err = err
		return
	}
	s.err = s.rc.Flush()
}
