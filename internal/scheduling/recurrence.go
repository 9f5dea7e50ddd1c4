// Package scheduling concentra a lógica de agenda que não depende de banco: geração das datas de
// sessões recorrentes, cálculo do horário de término e a decisão entre agendamento único e lote.
package scheduling

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gestordeclinica/backend/internal/caldate"
)

// MaxScanDays limita a varredura: dias start .. start+364.
const MaxScanDays = 365

// WeekdaySet é um conjunto de dias da semana (0 = domingo .. 6 = sábado).
type WeekdaySet uint8

// NewWeekdaySet ignora índices fora de 0..6.
func NewWeekdaySet(days ...int) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// ParseWeekdays lê "1,3" (formato da query string). Itens não numéricos ou fora de 0..6 são ignorados.
func ParseWeekdays(s string) WeekdaySet {
	var set WeekdaySet
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		set = set.With(n)
	}
	return set
}

func (s WeekdaySet) With(day int) WeekdaySet {
	if day < 0 || day > 6 {
		return s
	}
	return s | 1<<uint(day)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) IsEmpty() bool { return s == 0 }

// Days retorna os índices em ordem crescente.
func (s WeekdaySet) Days() []int {
	out := make([]int, 0, 7)
	for d := 0; d < 7; d++ {
		if s&(1<<uint(d)) != 0 {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	days := s.Days()
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// MarshalJSON serializa como lista de índices: [1,3].
func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Days())
}

func (s *WeekdaySet) UnmarshalJSON(b []byte) error {
	var days []int
	if err := json.Unmarshal(b, &days); err != nil {
		return err
	}
	*s = NewWeekdaySet(days...)
	return nil
}

// Generate devolve as datas das sessões, em ordem crescente, a partir de start (inclusive).
// Para quando encontra sessionCount datas ou depois de MaxScanDays dias varridos; nesse caso a
// lista volta menor que o pedido, sem erro. Sem start não há datas.
func Generate(weekdays WeekdaySet, sessionCount int, start caldate.Date) []caldate.Date {
	if weekdays.IsEmpty() || sessionCount <= 0 || start.IsZero() {
		return []caldate.Date{}
	}
	capacity := sessionCount
	if capacity > MaxScanDays {
		capacity = MaxScanDays
	}
	out := make([]caldate.Date, 0, capacity)
	cursor := start
	for scanned := 0; scanned < MaxScanDays && len(out) < sessionCount; scanned++ {
		if weekdays.Has(cursor.Weekday()) && !cursor.Before(start) {
			out = append(out, cursor)
		}
		cursor = cursor.AddDays(1)
	}
	return out
}

// GenerateFrom aceita um instante; só o dia de calendário no fuso de t importa.
func GenerateFrom(weekdays WeekdaySet, sessionCount int, t time.Time) []caldate.Date {
	return Generate(weekdays, sessionCount, caldate.Of(t))
}

// RecurrencePlan é a configuração transitória do formulário de recorrência. Não é persistida;
// Dates recalcula tudo a cada chamada.
type RecurrencePlan struct {
	StartDate    caldate.Date `json:"start_date"`
	Weekdays     WeekdaySet   `json:"weekdays"`
	SessionCount int          `json:"session_count"`
}

func (p RecurrencePlan) Dates() []caldate.Date {
	return Generate(p.Weekdays, p.SessionCount, p.StartDate)
}

// SortDates ordena in place; usado por quem recebe listas de datas de fora (ex.: POST /batch).
func SortDates(dates []caldate.Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

// DedupeSorted remove datas repetidas de uma lista já ordenada.
func DedupeSorted(dates []caldate.Date) []caldate.Date {
	if len(dates) < 2 {
		return dates
	}
	out := dates[:1]
	for _, d := range dates[1:] {
		if d != out[len(out)-1] {
			out = append(out, d)
		}
	}
	return out
}
