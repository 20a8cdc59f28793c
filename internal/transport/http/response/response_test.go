package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidtube/internal/domain"
)

func record(t *testing.T, write func(c *gin.Context)) map[string]json.RawMessage {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	write(c)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestFailEnvelopeCarriesEmptyErrors(t *testing.T) {
	out := record(t, func(c *gin.Context) {
		Fail(c, domain.NotFound("channel does not exist"))
	})

	// errors 字段必须出现，且空时是 []，不能被省略
	raw, ok := out["errors"]
	require.True(t, ok)
	assert.Equal(t, "[]", string(raw))
	assert.Equal(t, `404`, string(out["statusCode"]))
	assert.Equal(t, `false`, string(out["success"]))
	assert.Equal(t, `"channel does not exist"`, string(out["message"]))
}

func TestFailUnknownErrorIs500(t *testing.T) {
	out := record(t, func(c *gin.Context) {
		Fail(c, errors.New("boom"))
	})
	assert.Equal(t, `500`, string(out["statusCode"]))
	assert.Equal(t, `"something went wrong"`, string(out["message"]))
	_, ok := out["errors"]
	assert.True(t, ok)
}

func TestOKEnvelopeHasNoErrorsField(t *testing.T) {
	out := record(t, func(c *gin.Context) {
		OK(c, http.StatusOK, gin.H{"x": 1}, "ok")
	})
	_, ok := out["errors"]
	assert.False(t, ok)
	assert.Equal(t, `true`, string(out["success"]))
}
