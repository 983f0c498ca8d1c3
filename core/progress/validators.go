package progress

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/chuoapp/chuo/core"
)

var (
	knownStatusTag  = "knownstatus"
	knownStatusText = "status must be one of: in_progress, completed"
)

// RegisterValidators registers this package's custom validators on the app validator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(knownStatusTag, knownStatusValidation)
	core.RegisterCustomTranslation(validate, translator, knownStatusTag, knownStatusText)
}

func knownStatusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Known()
}
