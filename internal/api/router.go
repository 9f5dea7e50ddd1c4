package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gestordeclinica/backend/internal/auth"
	"github.com/gestordeclinica/backend/internal/middleware"
)

// NewRouter monta as rotas. A cadeia global (recover, request id, log, timeout, CORS, gzip) fica a
// cargo de Wrap para que os testes possam usar o router cru.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	r.Handle("/api/auth/login", middleware.LoginRateLimit(h.Cfg.LoginRatePerMin)(http.HandlerFunc(h.Login))).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequireAuth(h.Cfg.JWTSecret))
	api.HandleFunc("/me", h.Me).Methods(http.MethodGet)

	api.HandleFunc("/patients", h.ListPatients).Methods(http.MethodGet)
	api.HandleFunc("/patients", h.CreatePatient).Methods(http.MethodPost)
	api.HandleFunc("/patients/{id}", h.GetPatient).Methods(http.MethodGet)
	api.HandleFunc("/patients/{id}", h.UpdatePatient).Methods(http.MethodPut)
	api.HandleFunc("/patients/{id}", h.DeletePatient).Methods(http.MethodDelete)
	api.HandleFunc("/patients/{id}/appointments", h.ListPatientAppointments).Methods(http.MethodGet)
	api.Handle("/patients/{id}/statement.pdf",
		middleware.RequireRole(auth.RoleAdmin, auth.RoleReceptionist)(http.HandlerFunc(h.PatientStatementPDF))).Methods(http.MethodGet)

	clinical := middleware.RequireRole(auth.RoleAdmin, auth.RoleProfessional)
	api.Handle("/patients/{id}/ehr", clinical(http.HandlerFunc(h.ListEHREvents))).Methods(http.MethodGet)
	api.Handle("/patients/{id}/ehr", clinical(http.HandlerFunc(h.CreateEHREvent))).Methods(http.MethodPost)
	api.Handle("/ehr/{id}", clinical(http.HandlerFunc(h.GetEHREvent))).Methods(http.MethodGet)

	adminOnly := middleware.RequireRole(auth.RoleAdmin)
	api.HandleFunc("/professionals", h.ListProfessionals).Methods(http.MethodGet)
	api.Handle("/professionals", adminOnly(http.HandlerFunc(h.CreateProfessional))).Methods(http.MethodPost)
	api.HandleFunc("/professionals/{id}", h.GetProfessional).Methods(http.MethodGet)
	api.Handle("/professionals/{id}", adminOnly(http.HandlerFunc(h.UpdateProfessional))).Methods(http.MethodPut)
	api.Handle("/professionals/{id}", adminOnly(http.HandlerFunc(h.DeleteProfessional))).Methods(http.MethodDelete)

	api.HandleFunc("/appointments", h.ListAppointments).Methods(http.MethodGet)
	api.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/batch", h.CreateAppointmentBatch).Methods(http.MethodPost)
	api.HandleFunc("/appointments/recurring", h.CreateRecurringAppointments).Methods(http.MethodPost)
	api.HandleFunc("/appointments/recurrence-preview", h.RecurrencePreview).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}", h.GetAppointment).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods(http.MethodPut)
	api.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods(http.MethodDelete)
	api.HandleFunc("/appointments/{id}/status", h.UpdateAppointmentStatus).Methods(http.MethodPatch)

	fin := api.PathPrefix("/financial").Subrouter()
	fin.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleReceptionist))
	fin.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	fin.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	fin.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	fin.HandleFunc("/transactions/{id}", h.UpdateTransaction).Methods(http.MethodPut)
	fin.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods(http.MethodDelete)
	fin.HandleFunc("/transactions/{id}/pay", h.PayTransaction).Methods(http.MethodPost)
	fin.HandleFunc("/summary", h.FinancialSummary).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	admin.HandleFunc("/reminders/trigger", h.TriggerReminders).Methods(http.MethodPost)
	admin.HandleFunc("/audit-events", h.ListAuditEvents).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Wrap aplica a cadeia global de middlewares do servidor.
func Wrap(h *Handler, r http.Handler) http.Handler {
	return middleware.RequestID(
		middleware.Recover(h.Log)(
			middleware.Logger(h.Log)(
				middleware.Timeout(h.Cfg.RequestTimeout())(
					middleware.CORS(h.Cfg.CORSOrigins)(
						middleware.Gzip(r))))))
}
