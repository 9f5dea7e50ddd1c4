package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/middleware"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/scheduling"
	"github.com/gestordeclinica/backend/internal/validation"
)

const maxBodyBytes = 1 << 20

// RequestError é um erro com status HTTP e texto apresentável ao usuário. Implementa
// scheduling.ServerMessager para que a mesma mensagem chegue ao formulário de agendamento.
type RequestError struct {
	Status  int
	Message string
	// Conflicts lista as datas/horários que bateram com a agenda do profissional (409).
	Conflicts []ConflictInfo
}

type ConflictInfo struct {
	AppointmentID string       `json:"appointment_id"`
	Date          caldate.Date `json:"date"`
	StartTime     string       `json:"start_time"`
	EndTime       string       `json:"end_time"`
}

func (e *RequestError) Error() string         { return fmt.Sprintf("%d: %s", e.Status, e.Message) }
func (e *RequestError) ServerMessage() string { return e.Message }

func badRequest(msg string) *RequestError { return &RequestError{Status: http.StatusBadRequest, Message: msg} }
func notFound(msg string) *RequestError   { return &RequestError{Status: http.StatusNotFound, Message: msg} }

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeJSON lê o corpo (até 1 MiB) em dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid body"
		if errors.Is(err, io.EOF) {
			msg = "empty body"
		}
		var syn *json.SyntaxError
		var typ *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syn):
			msg = "invalid JSON"
		case errors.As(err, &typ):
			msg = fmt.Sprintf("%s has an invalid type", typ.Field)
		case errors.Is(err, caldate.ErrInvalidDate):
			msg = "invalid date, expected YYYY-MM-DD"
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// validate roda o validator e responde 400 com a mensagem por campo.
func validate(w http.ResponseWriter, v interface{}) bool {
	if err := validation.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validation.Message(err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, badRequest("invalid " + name)
	}
	return &id, nil
}

func queryDate(r *http.Request, name string) (caldate.Date, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return caldate.Date{}, nil
	}
	d, err := caldate.Parse(s)
	if err != nil {
		return caldate.Date{}, badRequest("invalid " + name + ", expected YYYY-MM-DD")
	}
	return d, nil
}

// fail traduz erros de repositório/serviço em resposta. Erros desconhecidos viram 500 e vão para o log.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var re *RequestError
	switch {
	case errors.As(err, &re):
		if len(re.Conflicts) > 0 {
			writeJSON(w, re.Status, map[string]interface{}{"error": re.Message, "conflicts": re.Conflicts})
			return
		}
		writeError(w, re.Status, re.Message)
	case validation.IsValidationError(err):
		writeError(w, http.StatusBadRequest, validation.Message(err))
	case errors.Is(err, scheduling.ErrNoDate), errors.Is(err, scheduling.ErrInvalidTime), errors.Is(err, scheduling.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	default:
		h.Log.Error("internal error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func isConflict(err error) bool { return errors.Is(err, repo.ErrConflict) }

func isNotFound(err error) bool { return errors.Is(err, repo.ErrNotFound) }
