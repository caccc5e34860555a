package course

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	levelTag  = "courselevel"
	levelText = "invalid course level"

	slugTag   = "slug"
	slugText  = "only lowercase alphanumeric characters and hyphens are allowed"
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// InitValidators registers this package's custom validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(levelTag, levelValidation)
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)

	_ = validate.RegisterValidation(slugTag, slugValidation)
	core.RegisterCustomTranslation(validate, translator, slugTag, slugText)
}

// Custom Validators

// levelValidation checks that the provided level is in AllLevels
func levelValidation(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	for _, l := range AllLevels {
		if level == l {
			return true
		}
	}
	return false
}

// slugValidation checks that the provided slug is URL-safe
func slugValidation(fl validator.FieldLevel) bool {
	return slugRegex.MatchString(fl.Field().String())
}
