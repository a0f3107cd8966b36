package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

type contextKey string

const (
	contextKeyUserId    contextKey = "userId"
	contextKeyUserEmail contextKey = "userEmail"
	contextKeyUserRole  contextKey = "userRole"
	contextKeyLogger    contextKey = "logger"
)

var wg sync.WaitGroup

func (app *application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func (app *application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

		case errors.As(err, &invalidUnmarshalError):
			panic(err)

		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func (app *application) contextGetUserId(r *http.Request) int {
	userId, _ := r.Context().Value(contextKeyUserId).(int)

	return userId
}

func (app *application) contextGetUserEmail(r *http.Request) string {
	email, _ := r.Context().Value(contextKeyUserEmail).(string)

	return email
}

func (app *application) contextGetLogger(r *http.Request) *slog.Logger {
	logger, ok := r.Context().Value(contextKeyLogger).(*slog.Logger)
	if !ok {
		return app.logger
	}

	return logger
}

// background runs fn in its own goroutine, recovering panics so a failure in
// a fire-and-forget task never takes down the server.
func (app *application) background(fn func()) {
	wg.Add(1)

	go func() {
		defer wg.Done()

		defer func() {
			if err := recover(); err != nil {
				app.logger.Error("background task panicked", "error", fmt.Sprintf("%v", err))
			}
		}()

		fn()
	}()
}
