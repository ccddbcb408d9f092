package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/klipach/dietapp/apperr"
)

const msgBadRequest = "Nieprawidłowe dane żądania"

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// report fields by their json names, the ones clients send
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
}

// bind decodes the JSON body and checks its binding tags; a failure is answered with 400.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, bindError(err))
		return false
	}
	return true
}

// bindError turns the first failed binding rule into a validation error clients can show.
func bindError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return apperr.Wrap(apperr.Validation, msgBadRequest, err)
	}
	fe := fields[0]
	var msg string
	switch fe.Tag() {
	case "required", "notblank":
		msg = fmt.Sprintf("Pole %s nie może być puste", fe.Field())
	case "email":
		msg = "Nieprawidłowy adres e-mail"
	default:
		msg = fmt.Sprintf("Nieprawidłowa wartość pola %s", fe.Field())
	}
	return apperr.Wrap(apperr.Validation, msg, err)
}
