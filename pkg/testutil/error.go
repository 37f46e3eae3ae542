package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertHTTPError verifies that the recorded response is a JSON error body
// with the provided status code, and returns its message.
func AssertHTTPError(t *testing.T, rec *httptest.ResponseRecorder, code int) string {
	require.Equal(t, code, rec.Code, rec.Body.String())

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	return body.Error
}
