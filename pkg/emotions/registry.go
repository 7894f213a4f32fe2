package emotions

import (
	"fmt"
	"sync"
)

// Registry maps emotions to profiles. It is read-only after construction.
type Registry struct {
	profiles map[Emotion]Profile
}

// NewRegistry builds a registry from the built-in table, with overrides
// applied on top. Every category must end up with a profile.
func NewRegistry(overrides ...Profile) (*Registry, error) {
	builtIn, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}

	r := &Registry{profiles: make(map[Emotion]Profile, len(builtIn))}
	for _, p := range builtIn {
		r.profiles[p.Emotion] = p
	}
	for _, p := range overrides {
		r.profiles[p.Emotion] = p
	}

	for _, e := range All() {
		if _, ok := r.profiles[e]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, e)
		}
	}
	return r, nil
}

// Lookup returns the profile for key. Unknown keys get the neutral profile.
func (r *Registry) Lookup(key string) Profile {
	if p, ok := r.profiles[Emotion(key)]; ok {
		return p
	}
	return r.profiles[Neutral]
}

// Guidance returns the guidance line for key.
func (r *Registry) Guidance(key string) string {
	return r.Lookup(key).Guidance
}

// Fallback returns the canned reply for key.
func (r *Registry) Fallback(key string) string {
	return r.Lookup(key).Fallback
}

// Profiles returns every profile in All() order.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, e := range All() {
		out = append(out, r.profiles[e])
	}
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built from the embedded table.
// It panics if the embedded table is invalid, which tests guard against.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry()
		if err != nil {
			panic(fmt.Sprintf("emotions: embedded profiles: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
