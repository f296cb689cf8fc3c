package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/validation"
)

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "uzphone", func(fl validator.FieldLevel) bool {
		return validation.IsValidPhone(fl.Field().String())
	})
	mustRegister(v, "password", func(fl validator.FieldLevel) bool {
		return validation.ValidatePassword(fl.Field().String()) == nil
	})
	mustRegister(v, "luhn", func(fl validator.FieldLevel) bool {
		return validation.IsValidCardNumber(fl.Field().String())
	})
	mustRegister(v, "cvv", func(fl validator.FieldLevel) bool {
		return validation.IsValidCVV(fl.Field().String())
	})
	mustRegister(v, "capacity", func(fl validator.FieldLevel) bool {
		return model.Capacity(fl.Field().String()).Valid()
	})
	mustRegister(v, "steering", func(fl validator.FieldLevel) bool {
		return model.Steering(fl.Field().String()).Valid()
	})
	mustRegister(v, "location", func(fl validator.FieldLevel) bool {
		return model.Location(fl.Field().String()).Valid()
	})

	return &requestValidator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// check возвращает сообщения об ошибках по полям или nil.
func (rv *requestValidator) check(dst any) map[string]string {
	err := rv.v.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Namespace начинается с имени типа запроса: rentalOrderRequest.billing.phone.
		_, name, _ := strings.Cut(fe.Namespace(), ".")
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "this field is required"
	case "uzphone":
		return "phone number must be 998 followed by a valid operator code and 7 digits"
	case "password":
		if err := validation.ValidatePassword(fe.Value().(string)); err != nil {
			return err.Error()
		}
		return "invalid password"
	case "luhn":
		return "invalid card number"
	case "cvv":
		return "CVV must contain exactly 3 digits"
	case "capacity":
		return "capacity must be one of 2, 4, 6, 8 or more"
	case "steering":
		return "steering must be one of Manual, Power, Electric"
	case "location":
		return "location must be one of TAS_AIR, TAS_CITY, SAM_ST, BUH_DT"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	case "email":
		return "invalid email address"
	case "eqfield":
		return "passwords do not match"
	}
	return "invalid value"
}
