package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedPayload means none of the known envelope shapes matched
	// or the embedded user could not be decoded.
	ErrUnrecognizedPayload = errors.New("unrecognized user payload")

	// ErrRejected matches every *RejectedError.
	ErrRejected = errors.New("request rejected by server")
)

// RejectedError is returned for a {success:false} envelope. The HTTP status
// was 2xx but the backend reported failure in the body.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRejected, e.Message)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// EnvelopeKind names the response shapes the backend has used over time.
type EnvelopeKind int

const (
	KindNewEnvelope EnvelopeKind = iota + 1
	KindLegacyEnvelope
	KindBareUser
)

func (k EnvelopeKind) String() string {
	switch k {
	case KindNewEnvelope:
		return "new-envelope"
	case KindLegacyEnvelope:
		return "legacy-envelope"
	case KindBareUser:
		return "bare-user"
	default:
		return "unknown"
	}
}

// LoginResponse is the closed set of shapes a user-bearing response may take:
//
//	NewEnvelope    {"success": true, "data": {"user": {...}, "access_token": "..."}}
//	LegacyEnvelope {"user": {...}, "token": "..."}
//	BareUser       {"id": 1, "email": "..."}
//
// ParseLoginResponse is the only constructor.
type LoginResponse interface {
	Kind() EnvelopeKind
	Tokens() Tokens
	userPayload() json.RawMessage
}

type NewEnvelope struct {
	Success bool
	Message string
	User    json.RawMessage
	tokens  Tokens
}

func (e NewEnvelope) Kind() EnvelopeKind { return KindNewEnvelope }
func (e NewEnvelope) Tokens() Tokens { return e.tokens }
func (e NewEnvelope) userPayload() json.RawMessage { return e.User }

type LegacyEnvelope struct {
	User   json.RawMessage
	tokens Tokens
}

func (e LegacyEnvelope) Kind() EnvelopeKind { return KindLegacyEnvelope }
func (e LegacyEnvelope) Tokens() Tokens { return e.tokens }
func (e LegacyEnvelope) userPayload() json.RawMessage { return e.User }

type BareUser struct {
	User json.RawMessage
}

func (e BareUser) Kind() EnvelopeKind { return KindBareUser }
func (e BareUser) Tokens() Tokens { return Tokens{} }
func (e BareUser) userPayload() json.RawMessage { return e.User }

// ParseLoginResponse discriminates raw by its top-level keys:
//   - "success" or "data" present: NewEnvelope; the user is data.user,
//     data itself when data carries user identity fields, or a top-level
//     "user" next to the success flag;
//   - "user" present: LegacyEnvelope;
//   - "id" or "email" present: BareUser.
//
// Anything else yields ErrUnrecognizedPayload.
func ParseLoginResponse(raw []byte) (LoginResponse, error) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: not a JSON object", ErrUnrecognizedPayload)
	}

	_, hasSuccess := obj["success"]
	_, hasData := obj["data"]
	switch {
	case hasSuccess || hasData:
		return parseNewEnvelope(obj)
	case hasKey(obj, "user"):
		user := obj["user"]
		if _, ok := asObject(user); !ok {
			return nil, fmt.Errorf("%w: legacy envelope without user object", ErrUnrecognizedPayload)
		}
		return LegacyEnvelope{User: user, tokens: tokensFrom(obj)}, nil
	case looksLikeUser(obj):
		return BareUser{User: json.RawMessage(raw)}, nil
	default:
		return nil, ErrUnrecognizedPayload
	}
}

func parseNewEnvelope(obj map[string]json.RawMessage) (LoginResponse, error) {
	env := NewEnvelope{Success: true}

	if v, ok := obj["success"]; ok {
		if err := json.Unmarshal(v, &env.Success); err != nil {
			return nil, fmt.Errorf("%w: success flag: %v", ErrUnrecognizedPayload, err)
		}
	}
	if v, ok := obj["message"]; ok {
		_ = json.Unmarshal(v, &env.Message)
	}

	data, _ := asObject(obj["data"])
	if data != nil {
		env.tokens = tokensFrom(data)
		if user, ok := asObject(data["user"]); ok && user != nil {
			env.User = data["user"]
		} else if looksLikeUser(data) {
			env.User = obj["data"]
		}
	}
	if env.User == nil {
		if user, ok := asObject(obj["user"]); ok && user != nil {
			env.User = obj["user"]
		}
	}
	if env.tokens.IsZero() {
		env.tokens = tokensFrom(obj)
	}

	if env.Success && env.User == nil {
		return nil, fmt.Errorf("%w: envelope without user", ErrUnrecognizedPayload)
	}
	return env, nil
}

// Normalize turns any LoginResponse into a canonical User.
func Normalize(resp LoginResponse) (*User, error) {
	if resp == nil {
		return nil, ErrUnrecognizedPayload
	}
	if env, ok := resp.(NewEnvelope); ok && !env.Success {
		return nil, &RejectedError{Message: env.Message}
	}

	raw := resp.userPayload()

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnrecognizedPayload, resp.Kind(), err)
	}
	var l legacyUser
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnrecognizedPayload, resp.Kind(), err)
	}

	u.applyLegacy(l)
	u.fillAliases()

	if u.ID == 0 && u.Email == "" {
		return nil, fmt.Errorf("%w: user has neither id nor email", ErrUnrecognizedPayload)
	}
	return &u, nil
}

// NormalizeUser parses and normalizes raw in one step.
func NormalizeUser(raw []byte) (*User, error) {
	resp, err := ParseLoginResponse(raw)
	if err != nil {
		return nil, err
	}
	return Normalize(resp)
}

func asObject(raw []byte) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func hasKey(obj map[string]json.RawMessage, key string) bool {
	_, ok := obj[key]
	return ok
}

func looksLikeUser(obj map[string]json.RawMessage) bool {
	return hasKey(obj, "id") || hasKey(obj, "email")
}
