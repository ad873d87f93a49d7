package callgraph

// Guard is the set of function names on the current root-to-node path. It is
// a persistent list: With returns an extended guard and never modifies the
// receiver, so sibling expansions that share a parent guard cannot see each
// other's ancestry, and a Guard may be read from several goroutines at once.
// The zero value is the empty guard.
type Guard struct {
	head *guardLink
	size int
}

type guardLink struct {
	name string
	next *guardLink
}

// With returns a guard containing name in addition to g's names.
func (g Guard) With(name string) Guard {
	return Guard{head: &guardLink{name: name, next: g.head}, size: g.size + 1}
}

// Has reports whether name is on the path. Paths are bounded by the depth
// limit, so a linear scan is enough.
func (g Guard) Has(name string) bool {
	for l := g.head; l != nil; l = l.next {
		if l.name == name {
			return true
		}
	}
	return false
}

// Len returns the number of names on the path.
func (g Guard) Len() int { return g.size }

// Path returns the names from the root of the expansion to the newest one.
func (g Guard) Path() []string {
	out := make([]string, g.size)
	i := g.size - 1
	for l := g.head; l != nil; l = l.next {
		out[i] = l.name
		i--
	}
	return out
}
