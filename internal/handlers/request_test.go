package handlers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appValidator "github.com/flowoff/assistente/pkg/validator"
)

func TestDescribeValidation(t *testing.T) {
	msg := describeValidation(appValidator.ValidationErrors{
		{Field: "ttl_seconds", Tag: "min", Param: "1"},
		{Field: "to", Tag: "required"},
		{Field: "kind", Tag: "startswith", Param: "x"},
	})
	require.Equal(t, "ttl seconds must be at least 1; to is required; kind failed validation: startswith=x", msg)

	require.Equal(t, "invalid request payload", describeValidation(errors.New("boom")))
	require.Equal(t, "invalid request payload", describeValidation(appValidator.ValidationErrors{}))
}

func TestQueryLimit(t *testing.T) {
	cases := map[string]int{
		"":           50,
		"?limit=10":  10,
		"?limit=0":   50,
		"?limit=-3":  50,
		"?limit=abc": 50,
		"?limit=501": 50,
		"?limit=500": 500,
	}
	for query, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/api/backups"+query, nil)
		require.Equal(t, want, queryLimit(c, "limit", 50, 500), query)
	}
}

func TestRequestContextFallback(t *testing.T) {
	require.NotNil(t, requestContext(nil))
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.NotNil(t, requestContext(c))
}
