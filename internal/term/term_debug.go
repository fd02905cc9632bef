//go:build egel_debug

package term

// checkExclusive enforces, in debug builds only, the documented
// exception to term immutability: in-place Array.Set is only valid on
// an array nothing else still references.
func checkExclusive(t *Term) {
	if t.Tag == TagArray && t.refs > 1 {
		panic("term: Set on a shared array")
	}
}
