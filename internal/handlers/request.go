package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/response"
	appValidator "github.com/flowoff/assistente/pkg/validator"
)

// validationMessages renders a failed rule for a field. %[1]s is the field, %[2]s the rule parameter.
var validationMessages = map[string]string{
	"required": "%[1]s is required",
	"email":    "%[1]s must be a valid email address",
	"min":      "%[1]s must be at least %[2]s",
	"max":      "%[1]s must be at most %[2]s",
	"gte":      "%[1]s must be at least %[2]s",
	"lte":      "%[1]s must be at most %[2]s",
	"oneof":    "%[1]s must be one of: %[2]s",
	"cachekey": "%[1]s must be printable text without spaces",
}

func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// bindAndValidate decodes the JSON body into dest and validates it. On failure a 400
// response has already been written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(describeValidation(err)))
		return false
	}
	return true
}

func describeValidation(err error) string {
	failures, ok := err.(appValidator.ValidationErrors)
	if !ok || len(failures) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(failures))
	for _, failure := range failures {
		field := strings.ToLower(strings.ReplaceAll(failure.Field, "_", " "))
		if field == "" {
			field = "field"
		}
		if format, known := validationMessages[failure.Tag]; known {
			messages = append(messages, fmt.Sprintf(format, field, failure.Param))
			continue
		}
		rule := failure.Tag
		if failure.Param != "" {
			rule += "=" + failure.Param
		}
		messages = append(messages, field+" failed validation: "+rule)
	}
	return strings.Join(messages, "; ")
}

// queryLimit reads a positive integer query parameter, falling back to def when the
// value is missing, malformed or above max.
func queryLimit(c *gin.Context, key string, def, max int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > max {
		return def
	}
	return limit
}
