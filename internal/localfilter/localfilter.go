// Package localfilter filters client-side cached lists with a user-typed
// pattern.
package localfilter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-admin/internal/model"
)

// Filter keeps the items whose haystack matches pattern case-insensitively.
// An empty pattern keeps everything. A pattern that does not compile matches
// nothing; the caller gets an empty result, never an error.
func Filter[T any](items []T, pattern string, haystack func(T) string) []T {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return append([]T{}, items...)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return []T{}
	}
	out := []T{}
	for _, it := range items {
		if re.MatchString(haystack(it)) {
			out = append(out, it)
		}
	}
	return out
}

// PatientHaystack is the text a patient search runs against: both names and the id.
func PatientHaystack(p model.Patient) string {
	return fmt.Sprintf("%s %s %d", p.FirstName, p.LastName, p.ID)
}

// LoadFunc fetches the full patient page that searches run against.
type LoadFunc func(ctx context.Context) ([]model.Patient, error)

const patientsKey = "patients:all"

// PatientIndex caches the initial full patient page and filters it locally.
type PatientIndex struct {
	load  LoadFunc
	cache *cache.Cache
	ttl   time.Duration
	mu    sync.Mutex
}

func NewPatientIndex(load LoadFunc, ttl time.Duration) *PatientIndex {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PatientIndex{
		load:  load,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// All returns the cached patients, loading them on a miss.
func (p *PatientIndex) All(ctx context.Context) ([]model.Patient, error) {
	if v, ok := p.cache.Get(patientsKey); ok {
		return v.([]model.Patient), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.cache.Get(patientsKey); ok {
		return v.([]model.Patient), nil
	}
	patients, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	p.cache.Set(patientsKey, patients, p.ttl)
	return patients, nil
}

// Search filters the cached patients by pattern. Only a failed load returns
// an error.
func (p *PatientIndex) Search(ctx context.Context, pattern string) ([]model.Patient, error) {
	all, err := p.All(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(all, pattern, PatientHaystack), nil
}

// Invalidate drops the cache so the next search reloads.
func (p *PatientIndex) Invalidate() {
	p.cache.Delete(patientsKey)
}
