package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidTime     = errors.New("invalid time, expected HH:MM")
	ErrInvalidDuration = errors.New("invalid duration")
)

// ParseHHMM aceita "HH:MM" e também "HH:MM:SS" (formato TIME do Postgres), retornando minutos desde 00:00.
func ParseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
	}
	return h*60 + m, nil
}

// FormatHHMM formata minutos desde 00:00, com volta em 24h.
func FormatHHMM(total int) string {
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60)
}

// ComputeEndTime soma durationMinutes a start. Se passar da meia-noite a hora volta módulo 24 e
// nenhum sinal de troca de dia é devolvido ("23:30" + 45 = "00:15"). Use CrossesMidnight para
// detectar o caso.
func ComputeEndTime(start string, durationMinutes int) (string, error) {
	if durationMinutes < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidDuration, durationMinutes)
	}
	startMin, err := ParseHHMM(start)
	if err != nil {
		return "", err
	}
	return FormatHHMM(startMin + durationMinutes), nil
}

// CrossesMidnight informa se start + duration termina em outro dia. Entradas inválidas retornam false.
func CrossesMidnight(start string, durationMinutes int) bool {
	startMin, err := ParseHHMM(start)
	if err != nil || durationMinutes < 0 {
		return false
	}
	return startMin+durationMinutes >= 24*60
}
