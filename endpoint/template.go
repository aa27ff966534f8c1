package endpoint

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"net/http"
)

// HTMLTemplateRenderer executes Template with Values. Execution is buffered
// so that template errors surface before the status is written.
//
// Name, when set, selects a named template via ExecuteTemplate.
type HTMLTemplateRenderer struct {
	Status   int
	Template *template.Template
	Name     string
	Values   any
}

func (hr *HTMLTemplateRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	if hr.Template == nil {
		return errors.New("endpoint: nil html/template")
	}
	var buf bytes.Buffer
	var err error
	if hr.Name != "" {
		err = hr.Template.ExecuteTemplate(&buf, hr.Name, hr.Values)
	} else {
		err = hr.Template.Execute(&buf, hr.Values)
	}
	if err != nil {
		return err
	}
	setContentType(w, "text/html; charset=utf-8")
	w.WriteHeader(statusOrOK(hr.Status))
	_, err = io.Copy(w, &buf)
	return err
}
