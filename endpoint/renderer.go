package endpoint

import "net/http"

// setContentType sets Content-Type unless an earlier processor already did.
// An empty contentType means "text/plain; charset=utf-8".
func setContentType(w http.ResponseWriter, contentType string) {
	if w.Header().Get("Content-Type") == "" {
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
	}
}

func statusOrOK(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

// StringRenderer writes Body with an optional status and content type.
type StringRenderer struct {
	Status      int
	Body        string
	ContentType string
}

func (sr *StringRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	setContentType(w, sr.ContentType)
	w.WriteHeader(statusOrOK(sr.Status))
	if sr.Body == "" {
		return nil
	}
	_, err := w.Write([]byte(sr.Body))
	return err
}

// BytesRenderer writes a pre-encoded body. Unlike StringRenderer it always
// sets ContentType, overriding any earlier value.
type BytesRenderer struct {
	Status      int
	ContentType string
	Body        []byte
}

func (br *BytesRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	if br.ContentType != "" {
		w.Header().Set("Content-Type", br.ContentType)
	}
	w.WriteHeader(statusOrOK(br.Status))
	if len(br.Body) == 0 {
		return nil
	}
	_, err := w.Write(br.Body)
	return err
}

// NoContentRenderer writes a status code and no body. Status 0 means 204.
type NoContentRenderer struct {
	Status int
}

func (ncr *NoContentRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	status := ncr.Status
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
	return nil
}
