package alert

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahmethakanbesel/metal-tracker/internal/apperror"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CreateRuleRequest struct {
	SourceCode string `validate:"required"`
	Condition  string `validate:"required,oneof=greater_than less_than"`
	Threshold  string `validate:"required,numeric"`
	Email      string `validate:"required,email"`
}

var fieldMessages = map[string]string{
	"SourceCode": "source code is required",
	"Condition":  "condition must be greater_than or less_than",
	"Threshold":  "invalid threshold",
	"Email":      "invalid email address",
}

func (r CreateRuleRequest) Validate() *apperror.AppError {
	r.Threshold = strings.TrimSpace(r.Threshold)
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := fieldMessages[verrs[0].Field()]; ok {
			return apperror.New(apperror.BadRequest, msg)
		}
	}
	return apperror.Wrap(apperror.BadRequest, "invalid alert rule", err)
}
