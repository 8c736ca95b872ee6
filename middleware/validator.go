package middleware

import (
	"passkey_auth_ms/dtos/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var Validate *validator.Validate

// InitValidator initializes validator and custom rules
func InitValidator() {
	Validate = validator.New()

	Validate.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		otp := fl.Field().String()
		if len(otp) != 6 {
			return false
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	})
}

func translateValidationErrors(err validator.ValidationErrors) map[string]string {
	errorsMap := make(map[string]string)
	for _, e := range err {
		field := e.Field()
		tag := e.Tag()
		switch tag {
		case "required":
			errorsMap[field] = field + " is required"
		case "email":
			errorsMap[field] = field + " must be a valid email"
		case "otp", "len":
			errorsMap[field] = field + " must be 6 digits long"
		case "max":
			errorsMap[field] = field + " is too long"
		default:
			errorsMap[field] = field + " is invalid"
		}
	}
	return errorsMap
}

// ValidateBody is Fiber middleware that validates the request body and
// stores the parsed struct in locals for the controller.
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body T

		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(response.ErrorResponse{
				Error:   "validation_failed",
				Message: "invalid request body",
			})
		}

		if err := Validate.Struct(&body); err != nil {
			if errs, ok := err.(validator.ValidationErrors); ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":  "validation_failed",
					"fields": translateValidationErrors(errs),
				})
			}
			return c.Status(fiber.StatusBadRequest).JSON(response.ErrorResponse{
				Error:   "validation_failed",
				Message: err.Error(),
			})
		}

		c.Locals("body", &body)
		return c.Next()
	}
}
