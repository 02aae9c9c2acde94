package authz

import "github.com/adonisja/tyche-finance-sub001/pkg/domain"

// Hierarchy is the immutable role ordering. Construct once at process
// start and pass by value into every gate; it is never a package-level
// mutable global, so tests need nothing to reset.
type Hierarchy struct {
	ranks map[domain.Role]int
}

// NewHierarchy builds the ordering from the closed role set:
// user(1) < dev(2) < admin(3).
func NewHierarchy() Hierarchy {
	ranks := make(map[domain.Role]int)
	for _, r := range domain.Roles() {
		ranks[r] = r.Rank()
	}
	return Hierarchy{ranks: ranks}
}

// Satisfies reports whether the actual role subsumes the required one:
// rank(actual) >= rank(required). Roles outside the table rank as zero,
// so an unvalidated role never satisfies anything and an empty required
// role is satisfied by every valid role.
func (h Hierarchy) Satisfies(actual, required domain.Role) bool {
	return h.ranks[actual] >= h.ranks[required] && h.ranks[actual] > 0
}
