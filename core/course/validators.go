package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	contentTypeTag  = "contenttype"
	contentTypeText = "type must be one of: video, article, quiz, exercise, assignment"

	uniqueQuestionsTag  = "uniqueqids"
	uniqueQuestionsText = "quiz question ids must be unique"

	requiredIfTag  = "required_if"
	requiredIfText = "this field is required for this content type"
)

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(contentTypeTag, contentTypeValidation)
	core.RegisterCustomTranslation(validate, translator, contentTypeTag, contentTypeText)
	core.RegisterCustomTranslation(validate, translator, requiredIfTag, requiredIfText, true)

	validate.RegisterStructValidation(newContentStructValidation, NewContent{})
	core.RegisterCustomTranslation(validate, translator, uniqueQuestionsTag, uniqueQuestionsText)
}

func newContentStructValidation(sl validator.StructLevel) {
	nc, ok := sl.Current().Interface().(NewContent)
	if !ok || nc.Type != ContentQuiz {
		return
	}
	if _, dup := duplicateQuestionKey(nc.Quiz); dup {
		sl.ReportError(nc.Quiz, "quiz", "Quiz", uniqueQuestionsTag, "")
	}
}

func contentTypeValidation(fl validator.FieldLevel) bool {
	switch ct := fl.Field().Interface().(type) {
	case ContentType:
		return ct.Valid()
	case string:
		return ContentType(ct).Valid()
	}
	return false
}
