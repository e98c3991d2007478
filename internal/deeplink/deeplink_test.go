package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name  string
		uri   string
		token string
		ok    bool
	}{
		{"query param", "ipisp://consent?payment=eyJhbGciOi.eyJzdWIi.sig", "eyJhbGciOi.eyJzdWIi.sig", true},
		{"bare token", "ipisp://consent?eyJhbGciOi.abc", "eyJhbGciOi.abc", true},
		{"other params", "https://app.example/cb?state=1&payment=tok", "tok", true},
		{"second question mark ends query", "ipisp://x?payment=tok?junk", "tok", true},
		{"no query", "ipisp://consent", "", false},
		{"empty query", "ipisp://consent?", "", false},
		{"empty token", "ipisp://consent?payment=", "", false},
		{"malformed escape kept", "ipisp://x?payment=a%zz", "a%zz", true},
		{"percent escapes kept raw", "ipisp://x?payment=ab%3D", "ab%3D", true},
		{"plus kept raw", "ipisp://x?payment=a+b", "a+b", true},
		{"ampersand ends the field", "ipisp://x?payment=x&y=z", "x", true},
		{"no param field strips every occurrence", "ipisp://x?state=1", "state=1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, ok := ExtractToken(tc.uri, DefaultParam)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestHolder_TakeOnce(t *testing.T) {
	h := NewHolder("", nil)

	_, ok := h.Take()
	assert.False(t, ok, "nothing delivered yet")

	assert.True(t, h.Deliver("ipisp://consent?payment=first"))
	token, ok := h.Take()
	assert.True(t, ok)
	assert.Equal(t, "first", token)

	_, ok = h.Take()
	assert.False(t, ok, "token must be cleared after it is taken")
}

func TestHolder_URIWithoutTokenKeepsPending(t *testing.T) {
	h := NewHolder(DefaultParam, nil)
	h.Deliver("ipisp://consent?payment=keep")

	assert.False(t, h.Deliver("ipisp://home"))
	assert.False(t, h.Deliver(""))

	token, ok := h.Take()
	assert.True(t, ok)
	assert.Equal(t, "keep", token)
}

func TestHolder_LatestWins(t *testing.T) {
	h := NewHolder(DefaultParam, nil)
	h.Deliver("ipisp://a?payment=one")
	h.Deliver("ipisp://a?payment=two")

	token, _ := h.Take()
	assert.Equal(t, "two", token)
}

func TestHolder_CustomParam(t *testing.T) {
	h := NewHolder("jwt", nil)
	h.Deliver("ipisp://a?jwt=abc")

	token, ok := h.Take()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}
