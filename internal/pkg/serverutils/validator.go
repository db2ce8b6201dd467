package serverutils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest checks a bound DTO against its validate tags and converts
// the first failure into a 400.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("field '%s' failed on '%s'", first.Field(), first.Tag()))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
