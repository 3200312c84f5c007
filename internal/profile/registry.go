package profile

import (
	"fmt"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/joseph-ayodele/installments-tracker/internal/layout"
)

// MinDetectMatches is the number of distinct signature keywords a document
// must contain before a non-default profile is accepted.
const MinDetectMatches = 3

// Registry maps profile identifiers to profiles. It is seeded with the
// built-in set and optionally extended from a profile store.
type Registry struct {
	mu       sync.RWMutex
	profiles map[ID]Profile
	order    []ID
	detector *detector
}

func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[ID]Profile)}
	for _, id := range builtinIDs {
		p, _ := Builtin(id)
		r.profiles[id] = p
		r.order = append(r.order, id)
	}
	r.detector = newDetector(r.snapshot())
	return r
}

// Register adds a profile or replaces the one with the same ID.
func (r *Registry) Register(p Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.profiles[p.ID] = p
	r.detector = newDetector(r.snapshot())
	return nil
}

// Get returns the profile for id.
func (r *Registry) Get(id ID) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	return p, ok
}

// Resolve returns the profile for id, or the default profile when id is
// empty or unknown.
func (r *Registry) Resolve(id ID) Profile {
	if p, ok := r.Get(id); ok {
		return p
	}
	p, _ := r.Get(Default)
	return p
}

// IDs lists registered identifiers in registration order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ID(nil), r.order...)
}

// Detect scores text against every registered profile's signature.
func (r *Registry) Detect(text string) (ID, bool) {
	r.mu.RLock()
	d := r.detector
	r.mu.RUnlock()
	return d.detect(text)
}

// snapshot must be called with the lock held or before the registry is shared.
func (r *Registry) snapshot() []Profile {
	out := make([]Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.profiles[id])
	}
	return out
}

var builtinDetector = func() *detector {
	var ps []Profile
	for _, id := range builtinIDs {
		p, _ := Builtin(id)
		ps = append(ps, p)
	}
	return newDetector(ps)
}()

// Detect picks a built-in profile for the document text. It returns
// (Default, false) when no profile reaches MinDetectMatches.
func Detect(text string) (ID, bool) {
	return builtinDetector.detect(text)
}

// The matcher keeps per-call state, so calls are serialized.
type detector struct {
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	owners  []int // pattern index -> profile index
	ids     []ID
}

func newDetector(profiles []Profile) *detector {
	d := &detector{}
	var patterns [][]byte
	for pi, p := range profiles {
		d.ids = append(d.ids, p.ID)
		for _, kw := range p.Keywords {
			kw = layout.Fold(kw)
			if kw == "" {
				continue
			}
			patterns = append(patterns, []byte(kw))
			d.owners = append(d.owners, pi)
		}
	}
	if len(patterns) > 0 {
		d.matcher = ahocorasick.NewMatcher(patterns)
	}
	return d
}

func (d *detector) detect(text string) (ID, bool) {
	if d.matcher == nil {
		return Default, false
	}
	counts := make([]int, len(d.ids))
	d.mu.Lock()
	hits := d.matcher.Match([]byte(layout.Fold(text)))
	d.mu.Unlock()
	for _, idx := range hits {
		counts[d.owners[idx]]++
	}
	best, bestCount := -1, 0
	for i, c := range counts {
		if d.ids[i] == Default {
			continue
		}
		if c > bestCount {
			best, bestCount = i, c
		}
	}
	if best < 0 || bestCount < MinDetectMatches {
		return Default, false
	}
	return d.ids[best], true
}
