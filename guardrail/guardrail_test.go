package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Run("RedactsSensitiveKeys", func(t *testing.T) {
		in := map[string]interface{}{
			"passphrase": "correct horse battery staple",
			"master_key": []byte{1, 2, 3},
			"message":    "unlock attempted",
		}

		out := Sanitize(in)

		assert.Equal(t, redacted, out["passphrase"])
		assert.Equal(t, redacted, out["master_key"])
		assert.Equal(t, "unlock attempted", out["message"])
	})

	t.Run("KeyMatchIsCaseInsensitive", func(t *testing.T) {
		in := map[string]interface{}{"Passphrase": "secret-value"}
		out := Sanitize(in)
		assert.Equal(t, redacted, out["Passphrase"])
	})

	t.Run("SummarizesByteSlices", func(t *testing.T) {
		in := map[string]interface{}{"payload": []byte{1, 2, 3, 4, 5}}
		out := Sanitize(in)
		assert.Equal(t, "[bytes: 5 bytes]", out["payload"])
	})

	t.Run("RecursesIntoNestedRecords", func(t *testing.T) {
		in := map[string]interface{}{
			"details": map[string]interface{}{
				"token": "abc123",
			},
		}
		out := Sanitize(in)
		nested, ok := out["details"].(map[string]interface{})
		require := assert.New(t)
		require.True(ok)
		require.Equal(redacted, nested["token"])
	})

	t.Run("RedactsPIIShapedStrings", func(t *testing.T) {
		in := map[string]interface{}{
			"email": "user@example.com",
			"phone": "5551234567890",
			"path":  "/home/alice/tracks/song.wav",
			"note":  "no sensitive content here",
		}
		out := Sanitize(in)

		assert.Equal(t, redacted, out["email"])
		assert.Equal(t, redacted, out["phone"])
		assert.Equal(t, redacted, out["path"])
		assert.Equal(t, "no sensitive content here", out["note"])
	})
}

func TestIsAllowedEvent(t *testing.T) {
	assert.True(t, IsAllowedEvent("session.started"))
	assert.True(t, IsAllowedEvent("roc.verified"))
	assert.False(t, IsAllowedEvent("unknown.event"))
	assert.False(t, IsAllowedEvent(""))
}
