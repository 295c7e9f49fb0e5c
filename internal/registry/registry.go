package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Procedure is a zero-argument unit of work. Only its termination mode is observed.
type Procedure func()

// TestCase is a registered procedure plus its metadata.
// TestCase values are immutable once returned by the registry.
type TestCase struct {
	Name                      string
	Procedure                 Procedure
	ExpectAbnormalTermination bool
	Tags                      []string

	// Index is the registration position among selected cases.
	Index int
}

// HasTag reports whether the case carries the given tag.
func (tc TestCase) HasTag(tag string) bool {
	for _, t := range tc.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Selector decides, before a case is stored, whether it is offered to the run at all.
type Selector interface {
	Selects(tc TestCase) bool
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(tc TestCase) bool

// Selects implements Selector.
func (f SelectorFunc) Selects(tc TestCase) bool { return f(tc) }

var (
	// ErrSealed is returned by Register after Seal has been called.
	ErrSealed = errors.New("registry is sealed")

	// ErrInvalidCase is returned for an empty name or a nil procedure.
	ErrInvalidCase = errors.New("invalid test case")
)

// DuplicateNameError is returned when a name is registered twice.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate test name %q", e.Name)
}

// IsDuplicateName reports whether err is a DuplicateNameError.
func IsDuplicateName(err error) bool {
	var de *DuplicateNameError
	return errors.As(err, &de)
}

// Handle identifies a registration.
type Handle struct {
	name     string
	index    int
	excluded bool
}

// Name returns the normalized test name.
func (h Handle) Name() string { return h.name }

// Index returns the registration position, or -1 for an excluded case.
func (h Handle) Index() int { return h.index }

// Excluded reports whether the selector dropped the case.
func (h Handle) Excluded() bool { return h.excluded }

// Option configures a single registration.
type Option func(*TestCase)

// ExpectPanic marks the case as expected to terminate abnormally.
func ExpectPanic() Option {
	return func(tc *TestCase) { tc.ExpectAbnormalTermination = true }
}

// Conventional tags.
const (
	// TagFatal marks a case that ends the process.
	TagFatal = "fatal"
	// TagNonterminating marks a case that never returns.
	TagNonterminating = "nonterminating"
)

// Tags attaches tags to the case. Tags feed profile selection.
func Tags(tags ...string) Option {
	return func(tc *TestCase) { tc.Tags = append(tc.Tags, tags...) }
}

// Registry is an append-only, name-unique collection of test cases.
//
// Thread-safety: Register may be called concurrently during construction;
// All, Snapshot and Lookup are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	cases    []TestCase
	seen     map[string]struct{}
	selector Selector
	sealed   bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSelector installs an exclusion toggle evaluated at registration time.
func WithSelector(sel Selector) RegistryOption {
	return func(r *Registry) { r.selector = sel }
}

// New creates an empty registry.
func New(opts ...RegistryOption) *Registry {
	r := &Registry{seen: make(map[string]struct{})}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a named procedure.
//
// Names are NFC-normalized before the uniqueness check, so visually identical
// names in different Unicode forms collide. A failed call leaves the registry unchanged.
// Excluded names still count towards uniqueness.
func (r *Registry) Register(name string, proc Procedure, opts ...Option) (Handle, error) {
	normalized := normalize(name)
	if strings.TrimSpace(normalized) == "" {
		return Handle{}, fmt.Errorf("%w: name is required", ErrInvalidCase)
	}
	if proc == nil {
		return Handle{}, fmt.Errorf("%w: %q has no procedure", ErrInvalidCase, normalized)
	}

	tc := TestCase{Name: normalized, Procedure: proc}
	for _, opt := range opts {
		opt(&tc)
	}
	tc.Tags = append([]string(nil), tc.Tags...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return Handle{}, ErrSealed
	}
	if _, dup := r.seen[normalized]; dup {
		return Handle{}, &DuplicateNameError{Name: normalized}
	}
	r.seen[normalized] = struct{}{}

	if r.selector != nil && !r.selector.Selects(tc) {
		return Handle{name: normalized, index: -1, excluded: true}, nil
	}

	tc.Index = len(r.cases)
	r.cases = append(r.cases, tc)
	return Handle{name: normalized, index: tc.Index}, nil
}

// MustRegister is Register for static suites; it panics on error.
func (r *Registry) MustRegister(name string, proc Procedure, opts ...Option) Handle {
	h, err := r.Register(name, proc, opts...)
	if err != nil {
		panic(err)
	}
	return h
}

// Seal ends construction. Later Register calls fail with ErrSealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Len returns the number of selected cases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases)
}

// All returns the selected cases in registration order.
// The sequence is lazy and may be ranged over any number of times.
func (r *Registry) All() iter.Seq[TestCase] {
	return func(yield func(TestCase) bool) {
		for i := 0; ; i++ {
			r.mu.RLock()
			if i >= len(r.cases) {
				r.mu.RUnlock()
				return
			}
			tc := r.cases[i]
			r.mu.RUnlock()
			if !yield(tc) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the selected cases, taken before dispatching a run.
func (r *Registry) Snapshot() []TestCase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TestCase, len(r.cases))
	copy(out, r.cases)
	return out
}

// Names returns the selected names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.cases))
	for i, tc := range r.cases {
		names[i] = tc.Name
	}
	return names
}

// normalize is the single name form used for storage and lookup.
func normalize(name string) string {
	return norm.NFC.String(name)
}

// Lookup finds a selected case by name.
func (r *Registry) Lookup(name string) (TestCase, bool) {
	normalized := normalize(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tc := range r.cases {
		if tc.Name == normalized {
			return tc, true
		}
	}
	return TestCase{}, false
}

// Fingerprint hashes the selected suite (names, flags and tags, in order).
// Two runs with equal fingerprints executed the same suite.
func (r *Registry) Fingerprint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := sha256.New()
	for _, tc := range r.cases {
		fmt.Fprintf(h, "%d\x00%s\x00%t\x00%s\n", tc.Index, tc.Name, tc.ExpectAbnormalTermination, strings.Join(tc.Tags, ","))
	}
	return hex.EncodeToString(h.Sum(nil))
}
