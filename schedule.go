package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gestordeclinica/backend/internal/apiclient"
	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/config"
	"github.com/gestordeclinica/backend/internal/scheduling"
	"github.com/gestordeclinica/backend/internal/validation"
)

type scheduleFlags struct {
	patientID      string
	professionalID string
	date           string
	startTime      string
	duration       int
	specialty      string
	notes          string
	weekdays       string
	sessions       int
	startDate      string
	dryRun         bool
}

// newScheduleCmd agenda pela API usando a mesma decisão do formulário: com --weekdays e
// --sessions gera as datas e manda lote se houver mais de uma.
func newScheduleCmd() *cobra.Command {
	var f scheduleFlags
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Agenda consulta única ou recorrente em uma API em execução (API_URL, API_TOKEN)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
				return runSchedule(ctx, cmd, cfg, f)
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.patientID, "patient", "", "id do paciente")
	fl.StringVar(&f.professionalID, "professional", "", "id do profissional")
	fl.StringVar(&f.date, "date", "", "data da consulta única (YYYY-MM-DD)")
	fl.StringVar(&f.startTime, "start", "", "horário de início (HH:MM)")
	fl.IntVar(&f.duration, "duration", 50, "duração em minutos")
	fl.StringVar(&f.specialty, "specialty", "", "especialidade")
	fl.StringVar(&f.notes, "notes", "", "observações")
	fl.StringVar(&f.weekdays, "weekdays", "", "dias da semana da recorrência, 0=domingo (ex.: 1,3)")
	fl.IntVar(&f.sessions, "sessions", 0, "quantidade de sessões da recorrência")
	fl.StringVar(&f.startDate, "start-date", "", "início da recorrência (padrão: --date ou hoje)")
	fl.BoolVar(&f.dryRun, "dry-run", false, "só mostra as datas, sem gravar")
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("professional")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func runSchedule(ctx context.Context, cmd *cobra.Command, cfg *config.Config, f scheduleFlags) error {
	chosen, err := parseOptionalDate(f.date)
	if err != nil {
		return err
	}
	shared := scheduling.Shared{
		PatientID:      f.patientID,
		ProfessionalID: f.professionalID,
		StartTime:      f.startTime,
		Duration:       f.duration,
		Specialty:      optional(f.specialty),
		Notes:          optional(f.notes),
	}
	var plan *scheduling.RecurrencePlan
	if f.weekdays != "" || f.sessions > 0 {
		start, err := parseOptionalDate(f.startDate)
		if err != nil {
			return err
		}
		if start.IsZero() {
			start = chosen
		}
		if start.IsZero() {
			start = caldate.Today(cfg.ReminderLocation())
		}
		plan = &scheduling.RecurrencePlan{StartDate: start, Weekdays: scheduling.ParseWeekdays(f.weekdays), SessionCount: f.sessions}
	}

	sub, err := scheduling.Decide(plan, chosen, shared)
	if err != nil {
		return errors.New(validation.Message(err))
	}
	out := cmd.OutOrStdout()
	dates := sub.Dates()
	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = d.FormatBR()
	}
	mode := "única"
	if sub.IsBatch() {
		mode = "lote"
	}
	fmt.Fprintf(out, "%s, %d consulta(s): %s\n", mode, len(dates), strings.Join(labels, ", "))
	if plan != nil && plan.SessionCount > len(dates) && len(dates) > 1 {
		fmt.Fprintf(out, "atenção: %d de %d sessões cabem na janela de %d dias\n", len(dates), plan.SessionCount, scheduling.MaxScanDays)
	}
	if f.dryRun {
		return nil
	}

	client := apiclient.New(cfg.APIURL, cfg.APIToken)
	ids, err := scheduling.Submit(ctx, client, sub)
	if err != nil {
		var se *scheduling.SubmissionError
		if errors.As(err, &se) {
			fmt.Fprintln(cmd.ErrOrStderr(), se.UserMessage())
		}
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

func parseOptionalDate(s string) (caldate.Date, error) {
	if strings.TrimSpace(s) == "" {
		return caldate.Date{}, nil
	}
	return caldate.Parse(s)
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
