package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
)

const invalidDataMessage = "The given data was invalid."

var registerNames sync.Once

// useJSONFieldNames makes validator report json names (attraction_id) instead of Go names.
func useJSONFieldNames() {
	registerNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

// fail writes the JSON error body matching err.
func (h *Handler) fail(c *gin.Context, err error) {
	status, body := h.errorBody(c, err)
	c.JSON(status, body)
}

func (h *Handler) abort(c *gin.Context, err error) {
	status, body := h.errorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) errorBody(c *gin.Context, err error) (int, gin.H) {
	var (
		verr *service.ValidationError
		uerr *service.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		msg := invalidDataMessage
		switch {
		case errors.Is(err, service.ErrEmailNotRegistered):
			msg = service.ErrEmailNotRegistered.Error()
		case errors.Is(err, service.ErrIncorrectPassword):
			msg = service.ErrIncorrectPassword.Error()
		}
		return http.StatusUnprocessableEntity, gin.H{"message": msg, "errors": verr.Fields}
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, gin.H{"message": "Unauthenticated."}
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, gin.H{"message": "This action is unauthorized."}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, gin.H{"message": "Resource not found."}
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, gin.H{"message": service.ErrConflict.Error()}
	case errors.As(err, &uerr):
		h.log.Error("upstream failure", zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("service", uerr.Service), zap.Error(uerr.Err))
		return http.StatusInternalServerError, gin.H{"message": "upstream failure", "service": uerr.Service, "detail": uerr.Err.Error()}
	default:
		h.log.Error("internal error", zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("path", c.FullPath()), zap.Error(err))
		return http.StatusInternalServerError, gin.H{"message": "internal error"}
	}
}

// bind decodes the JSON body into dst and reports binding failures as validation errors.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var (
		verrs   validator.ValidationErrors
		syntax  *json.SyntaxError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &verrs):
		out := &service.ValidationError{Fields: map[string]string{}}
		for _, fe := range verrs {
			if _, ok := out.Fields[fe.Field()]; !ok {
				out.Fields[fe.Field()] = fieldMessage(fe)
			}
		}
		return out
	case errors.As(err, &typeErr):
		return service.NewValidationError(typeErr.Field, fmt.Sprintf("The %s must be of type %s.", humanize(typeErr.Field), typeErr.Type))
	case errors.As(err, &syntax), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return service.NewValidationError("body", "The request body must be valid JSON.")
	default:
		return service.NewValidationError("body", err.Error())
	}
}

func fieldMessage(fe validator.FieldError) string {
	name := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", name, fe.Param())
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "lte":
		return fmt.Sprintf("The %s may not be greater than %s.", name, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	default:
		return fmt.Sprintf("The %s is invalid.", name)
	}
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// pathID parses the :id route parameter; an unparsable id is reported as not found.
func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, service.ErrNotFound)
		return 0, false
	}
	return id, true
}
