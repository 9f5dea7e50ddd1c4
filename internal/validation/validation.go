// Package validation centraliza o validator usado nos payloads da API e nos pedidos de agendamento.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()
	hhmmRe   = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

var messages = map[string]string{
	"required": "is required",
	"gt":       "must be greater than %s",
	"gte":      "must be at least %s",
	"lte":      "must be at most %s",
	"max":      "must have at most %s characters",
	"min":      "must have at least %s items",
	"oneof":    "must be one of: %s",
	"email":    "must be a valid email",
	"hhmm":     "must be a time in HH:MM format",
	"cpf":      "must be a valid CPF",
	"uuid":     "must be a valid id",
}

func init() {
	validate.RegisterTagNameFunc(jsonName)
	_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmRe.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return ValidCPF(fl.Field().String())
	})
}

// Struct valida s pelas tags `validate`.
func Struct(s interface{}) error {
	return validate.Struct(s)
}

// Message transforma o erro do validator em "campo mensagem, campo mensagem". Outros erros passam direto.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if strings.Contains(msg, "%s") {
			msg = strings.Replace(msg, "%s", strings.Join(strings.Fields(fe.Param()), ", "), 1)
		}
		out = append(out, fe.Field()+" "+msg)
	}
	return strings.Join(out, ", ")
}

// IsValidationError reporta se err veio do validator.
func IsValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// OnlyDigits mantém só os dígitos ASCII 0-9 (CPF, telefone).
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF confere os dígitos verificadores. Aceita com ou sem máscara.
func ValidCPF(s string) bool {
	d := OnlyDigits(s)
	if len(d) != 11 {
		return false
	}
	allSame := true
	for i := 1; i < 11; i++ {
		if d[i] != d[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}
	check := func(n int) byte {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		r := (sum * 10) % 11
		if r == 10 {
			r = 0
		}
		return byte('0' + r)
	}
	return check(9) == d[9] && check(10) == d[10]
}
