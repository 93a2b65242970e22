package models

// Phase is the coarse session state. Transitions:
//
//	Unknown -> Checking -> Authenticated | Unauthenticated
//	Authenticated -> Unauthenticated   (logout, expired token)
//	Unauthenticated -> Authenticated   (login, register, external callback)
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseChecking
	PhaseAuthenticated
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseChecking:
		return "checking"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// AuthState is the read-only view of the session handed to guards and
// the shell. Version increases with every change.
type AuthState struct {
	IsAuthenticated bool
	IsLoading       bool
	User            *User
	Phase           Phase
	Version         uint64
}

// Clone deep-copies the state.
func (s AuthState) Clone() AuthState {
	s.User = s.User.Clone()
	return s
}
