// Package caldate define uma data de calendário sem hora nem fuso.
//
// Datas de consulta, nascimento e vencimento são dias de calendário. Toda comparação de datas do
// backend passa por Date; nada de comparar strings ou instantes UTC/local.
package caldate

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout é o formato de transporte e armazenamento (ISO 8601).
const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Faixa de anos aceita em datas de agenda e lançamentos.
const (
	MinYear = 1900
	MaxYear = 9999
)

// Date é um dia de calendário. O valor zero significa "sem data".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New normaliza overflow como time.Date (30/02 vira 02/03).
func New(year int, month time.Month, day int) Date {
	return Of(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Of retorna o dia de calendário de t no próprio fuso de t, descartando a hora.
func Of(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today retorna o dia corrente em loc (UTC se nil).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Of(time.Now().In(loc))
}

// Parse lê YYYY-MM-DD.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Of(t), nil
}

// MustParse é Parse para constantes e testes.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d == Date{} }

// InRange reporta se d é uma data preenchida com ano entre MinYear e MaxYear.
func (d Date) InRange() bool {
	return !d.IsZero() && d.Year >= MinYear && d.Year <= MaxYear
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time retorna a meia-noite de d em loc (UTC se nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday segue time.Weekday: 0 = domingo.
func (d Date) Weekday() time.Weekday { return d.Time(time.UTC).Weekday() }

func (d Date) AddDays(n int) Date { return Of(d.Time(time.UTC).AddDate(0, 0, n)) }

// Compare retorna -1, 0 ou +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// DaysUntil é o número de dias de d até o (negativo se o for anterior).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time(time.UTC).Sub(d.Time(time.UTC)).Hours() / 24)
}

// FormatBR formata DD/MM/YYYY para mensagens e PDFs.
func (d Date) FormatBR() string {
	if d.IsZero() {
		return ""
	}
	return d.Time(time.UTC).Format("02/01/2006")
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	return d.UnmarshalText([]byte(s))
}

// Value grava YYYY-MM-DD; o Postgres converte para DATE e o sqlite guarda como texto.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan aceita o que os drivers postgres e sqlite devolvem para colunas DATE.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Of(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("caldate: cannot scan %T", src)
	}
}

func (d *Date) scanString(s string) error {
	// sqlite pode devolver timestamp completo quando a coluna foi gravada a partir de time.Time.
	if len(s) > len(Layout) {
		s = s[:len(Layout)]
	}
	return d.UnmarshalText([]byte(s))
}

// GormDataType faz o gorm criar colunas DATE.
func (Date) GormDataType() string { return "date" }
