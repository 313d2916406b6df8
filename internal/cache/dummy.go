package cache

import "context"

// DummyCache is the required degrade-to-no-op policy from spec.md
// §4.10: constructed automatically when Redis dial fails at startup.
// Every lookup misses, every store is dropped, no error ever
// propagates to the caller.
type DummyCache struct{}

func NewDummyCache() *DummyCache { return &DummyCache{} }

func (DummyCache) Lookup(context.Context, string, string, []float32) (*Entry, bool, error) {
	return nil, false, nil
}

func (DummyCache) Store(context.Context, string, string, []float32, Entry) error {
	return nil
}

func (DummyCache) Invalidate(context.Context, string) error {
	return nil
}

var _ Cache = DummyCache{}
