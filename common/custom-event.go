package common

// Adapted from gin-contrib/sse: renders pre-framed SSE lines without
// re-encoding the payload, so adapters control the exact `data:` body.

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	contentType  = []string{"text/event-stream"}
	noCache      = []string{"no-cache"}
	dataReplacer = strings.NewReplacer(
		"\n", "\ndata:",
		"\r", "\\r")
)

type stringWriter interface {
	io.Writer
	WriteString(string) (int, error)
}

type stringWrapper struct {
	io.Writer
}

func (w stringWrapper) WriteString(str string) (int, error) {
	return w.Writer.Write([]byte(str))
}

func checkWriter(writer io.Writer) stringWriter {
	if w, ok := writer.(stringWriter); ok {
		return w
	}
	return stringWrapper{writer}
}

// CustomEvent carries one already-framed SSE event.
type CustomEvent struct {
	Event string
	Id    string
	Retry uint
	Data  interface{}
}

func encode(writer io.Writer, event CustomEvent) error {
	w := checkWriter(writer)
	return writeData(w, event.Data)
}

func writeData(w stringWriter, data interface{}) error {
	if _, err := dataReplacer.WriteString(w, fmt.Sprint(data)); err != nil {
		return err
	}
	if s, ok := data.(string); ok && strings.HasPrefix(s, "data") {
		if _, err := w.WriteString("\n\n"); err != nil {
			return err
		}
	}
	return nil
}

func (r CustomEvent) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	return encode(w, r)
}

func (r CustomEvent) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	header["Content-Type"] = contentType

	if _, exist := header["Cache-Control"]; !exist {
		header["Cache-Control"] = noCache
	}
}
