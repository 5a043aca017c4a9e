package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GenericEchoValidator adapts go-playground/validator to echo. Failures are
// reported as 400 with one clause per invalid field.
type GenericEchoValidator struct {
	Validator *validator.Validate
	once      sync.Once
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	gv.once.Do(func() {
		if gv.Validator == nil {
			gv.Validator = validator.New()
		}
	})
	err := gv.Validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err))
	}
	clauses := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		clause := fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag())
		if fe.Param() != "" {
			clause = fmt.Sprintf("%s failed %q (%s)", strings.ToLower(fe.Field()), fe.Tag(), fe.Param())
		}
		clauses = append(clauses, clause)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "received invalid request: "+strings.Join(clauses, ", "))
}
