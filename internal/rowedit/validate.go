package rowedit

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

var tagMessages = map[string]string{
	"required": "is required",
	"gt":       "must be chosen",
}

// checkStruct validates s and turns the failures into one precondition error.
func checkStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Precondition(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := tagMessages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed %s", e.Tag())
		}
		msgs = append(msgs, e.Field()+" "+msg)
	}
	return apperrors.Precondition(strings.Join(msgs, ", "))
}
