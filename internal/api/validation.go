package api

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var msisdnPattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

// DocumentTypes accepted by CN for subscriber identification.
var DocumentTypes = []string{"NIF", "NIE", "CIF", "PAS"}

var registerOnce sync.Once

// RegisterValidators installs the msisdn and doc_type tags on gin's validator
// and reports fields by their JSON name.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("msisdn", validateMSISDN)
		_ = v.RegisterValidation("doc_type", validateDocType)
	})
}

func validateMSISDN(fl validator.FieldLevel) bool {
	return msisdnPattern.MatchString(fl.Field().String())
}

func validateDocType(fl validator.FieldLevel) bool {
	value := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
	for _, t := range DocumentTypes {
		if value == t {
			return true
		}
	}
	return false
}

// fieldErrors flattens binding errors into field -> failed rule.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out[fe.Field()] = rule
	}
	return out
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
