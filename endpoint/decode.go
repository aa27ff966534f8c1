package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// defaultFieldLimit caps a field when no maxLength tag is given.
var defaultFieldLimit = 16 * 1024 // 16KB

// Unmarshal populates dst, a non-nil pointer to a struct, from r.
//
// Supported struct tags:
//   - `body:"[name][,json]"`: the raw request body. string and []byte fields
//     receive the bytes as-is; with the json flag (or for any other field
//     type) the body is JSON-decoded and must be sent as application/json.
//   - `header:"name"`: a request header. []string fields receive every value.
//   - `maxLength:"n"`: byte limit for the field; absent means 16KB, "0" or
//     "" means no limit.
//
// Fields with no data are left unchanged.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}
	root := v.Elem()
	if root.Kind() == reflect.Pointer {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct (or pointer to struct)"))
	}

	t := root.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		limit, err := fieldLengthLimit(sf)
		if err != nil {
			return err
		}
		field := root.Field(i)
		if tag, ok := sf.Tag.Lookup("body"); ok {
			if err := setBody(r, field, tag, limit); err != nil {
				return err
			}
			continue
		}
		if tag, ok := sf.Tag.Lookup("header"); ok {
			name := strings.TrimSpace(tag)
			if name == "" {
				name = sf.Name
			}
			if err := setHeader(r, field, name, limit); err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldLengthLimit(sf reflect.StructField) (int64, error) {
	val, has := sf.Tag.Lookup("maxLength")
	if !has {
		return int64(defaultFieldLimit), nil
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n < 0 {
		return 0, Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: invalid maxLength %q", sf.Name, val))
	}
	return n, nil
}

// MediaType returns the lowercased media type of the request's Content-Type,
// without parameters, or "" when the header is missing or malformed.
func MediaType(r *http.Request) string {
	ct := strings.TrimSpace(r.Header.Get("Content-Type"))
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

func isJSONMediaType(mt string) bool {
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func setBody(r *http.Request, field reflect.Value, tag string, limit int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	flags := strings.Split(tag, ",")[1:]
	asJSON := false
	for _, f := range flags {
		switch strings.TrimSpace(f) {
		case "":
		case "json":
			asJSON = true
		default:
			return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: unknown body flag %q", f))
		}
	}

	var body io.Reader = r.Body
	if limit > 0 {
		// Read one byte past the limit to detect oversize bodies.
		body = io.LimitReader(r.Body, limit+1)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return Error(http.StatusRequestEntityTooLarge, "", err)
		}
		return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
	}
	if limit > 0 && int64(len(b)) > limit {
		return Error(http.StatusRequestEntityTooLarge, "", fmt.Errorf("endpoint: decode: body exceeds max length %d", limit))
	}

	switch {
	case !asJSON && field.Kind() == reflect.String:
		field.SetString(string(b))
		return nil
	case !asJSON && field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Uint8:
		field.SetBytes(b)
		return nil
	}
	if mt := MediaType(r); !isJSONMediaType(mt) {
		if mt == "" {
			mt = "(missing)"
		}
		return Error(http.StatusUnsupportedMediaType, "", fmt.Errorf("endpoint: decode: body: unsupported media type %s", mt))
	}
	if err := json.Unmarshal(b, field.Addr().Interface()); err != nil {
		return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
	}
	return nil
}

func setHeader(r *http.Request, field reflect.Value, name string, limit int64) error {
	values := r.Header.Values(name)
	if len(values) == 0 {
		return nil
	}
	for _, v := range values {
		if limit > 0 && int64(len(v)) > limit {
			return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: header %q exceeds max length %d", name, limit))
		}
	}
	switch {
	case field.Kind() == reflect.String:
		field.SetString(values[0])
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(append([]string(nil), values...)))
	default:
		return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: header %q: unsupported field type %s", name, field.Type()))
	}
	return nil
}
