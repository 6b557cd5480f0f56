package dto

import (
	"github.com/go-playground/validator/v10"

	"duty-roster/internal/rotation"
)

// RegisterValidators 注册自定义校验规则
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("duty_pattern", func(fl validator.FieldLevel) bool {
		return rotation.ValidPattern(fl.Field().String())
	})
}
