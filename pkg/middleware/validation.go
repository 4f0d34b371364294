package middleware

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
)

var validatorOnce sync.Once

var (
	skuRegex           = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-.]{0,63}$`)
	barcodeRegex       = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-/]{2,63}$`)
	fulfillmentIDRegex = regexp.MustCompile(`^OFR-\d{8,}$`)
)

// InitValidator registers custom tags on Gin's validator
func InitValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("sku", regexValidator(skuRegex))
		_ = v.RegisterValidation("barcode", regexValidator(barcodeRegex))
		_ = v.RegisterValidation("fulfillment_id", regexValidator(fulfillmentIDRegex))

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

func regexValidator(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// IsFulfillmentID reports whether s looks like an issued fulfillment id
func IsFulfillmentID(s string) bool {
	return fulfillmentIDRegex.MatchString(s)
}

// ValidationErrorFormatter formats validation errors keyed by JSON field path
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[fieldPath(e)] = formatValidationError(e)
		}
	}
	return fields
}

// fieldPath drops the root struct name from the namespace: "req.lineItems[0].skuId" -> "lineItems[0].skuId"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "sku":
		return "must be a valid SKU id"
	case "barcode":
		return "must be a valid barcode"
	case "fulfillment_id":
		return "must be a valid fulfillment id (format: OFR-00000000)"
	case "dive":
		return "contains an invalid element"
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrValidation("invalid request body: " + err.Error())
	}
	return nil
}
