package models

import "encoding/json"

// Tokens is the pair issued on login. RefreshToken may be empty.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (t Tokens) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// tokensFrom finds tokens in an envelope level. Accepted spellings:
// access_token / accessToken / token, refresh_token / refreshToken, and a
// nested "tokens" object carrying the same keys.
func tokensFrom(obj map[string]json.RawMessage) Tokens {
	var t Tokens
	if nested, ok := asObject(obj["tokens"]); ok {
		t = tokensFrom(nested)
	}
	fill(&t.AccessToken, stringField(obj, "access_token"))
	fill(&t.AccessToken, stringField(obj, "accessToken"))
	fill(&t.AccessToken, stringField(obj, "token"))
	fill(&t.RefreshToken, stringField(obj, "refresh_token"))
	fill(&t.RefreshToken, stringField(obj, "refreshToken"))
	return t
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
