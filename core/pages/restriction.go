package pages

// User identifies whoever reacted to a paginated message.
type User struct {
	ID   string
	Name string
	Bot  bool
}

// Restriction decides whose reactions are honored.
// The set of variants is closed: Unrestricted, UserIDSet, SingleUserID and Predicate.
type Restriction interface {
	restriction()
}

// UnrestrictedPolicy honors every human user.
type UnrestrictedPolicy struct{}

// UserIDSet honors the listed users.
type UserIDSet map[string]struct{}

// SingleUserID honors exactly one user.
type SingleUserID string

// Predicate honors users for which the function returns true.
type Predicate func(User) bool

func (UnrestrictedPolicy) restriction() {}
func (UserIDSet) restriction()          {}
func (SingleUserID) restriction()       {}
func (Predicate) restriction()          {}

// Unrestricted returns the policy that accepts any non-bot user.
func Unrestricted() Restriction { return UnrestrictedPolicy{} }

// AllowUsers restricts reactions to the given user ids.
func AllowUsers(ids ...string) Restriction {
	set := make(UserIDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// AllowUser restricts reactions to a single user id.
func AllowUser(id string) Restriction { return SingleUserID(id) }

// AllowFunc restricts reactions to users accepted by fn.
func AllowFunc(fn func(User) bool) Restriction { return Predicate(fn) }

// Permits evaluates r for u. Bots are rejected before the policy is consulted.
// A nil policy behaves like Unrestricted.
func Permits(r Restriction, u User) bool {
	if u.Bot {
		return false
	}
	switch p := r.(type) {
	case nil, UnrestrictedPolicy:
		return true
	case UserIDSet:
		_, ok := p[u.ID]
		return ok
	case SingleUserID:
		return string(p) == u.ID
	case Predicate:
		return p != nil && p(u)
	}
	return false
}

func restrictionKind(r Restriction) string {
	switch r.(type) {
	case nil, UnrestrictedPolicy:
		return "unrestricted"
	case UserIDSet:
		return "user_set"
	case SingleUserID:
		return "single_user"
	case Predicate:
		return "predicate"
	}
	return "unknown"
}
