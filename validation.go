package cfbfs

// Validation selects how strictly Mount treats secondary bookkeeping
// mismatches beyond the core structural invariants, which are always
// enforced regardless of mode.
type Validation int

const (
	// Permissive repairs sector tagging mismatches it can safely infer
	// and only fails on structural corruption.
	Permissive Validation = iota
	// Strict turns any bookkeeping mismatch into a mount failure.
	Strict
)

func (v Validation) isStrict() bool {
	return v == Strict
}
