package drbg

import (
	"errors"
	"sync"
)

// Observer receives DRBG activity. Implementations must be cheap and safe for
// concurrent use.
type Observer interface {
	Generated(n int)
	Reseeded()
}

// Reader is the engine-wide random source. It serialises every generate and
// reseed on one mutex, reseeds when the mechanism asks for it and splits
// large reads into MaxRequestBytes chunks.
type Reader struct {
	mu                  sync.Mutex
	mech                Mechanism
	predictionResistant bool
	observer            Observer
}

func NewReader(mech Mechanism, predictionResistant bool) *Reader {
	return &Reader{mech: mech, predictionResistant: predictionResistant}
}

// SetObserver installs o. Passing nil removes the observer.
func (r *Reader) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for off := 0; off < len(p); {
		end := off + MaxRequestBytes
		if end > len(p) {
			end = len(p)
		}
		if err := r.generateLocked(p[off:end]); err != nil {
			return off, err
		}
		off = end
	}
	if r.observer != nil {
		r.observer.Generated(len(p))
	}
	return len(p), nil
}

// Reseed mixes fresh entropy and additional into the state.
func (r *Reader) Reseed(additional []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reseedLocked(additional)
}

func (r *Reader) generateLocked(chunk []byte) error {
	err := r.mech.Generate(chunk, nil, r.predictionResistant)
	if !errors.Is(err, ErrReseedRequired) {
		return err
	}
	if err := r.reseedLocked(nil); err != nil {
		return err
	}
	return r.mech.Generate(chunk, nil, r.predictionResistant)
}

func (r *Reader) reseedLocked(additional []byte) error {
	if err := r.mech.Reseed(additional); err != nil {
		return err
	}
	if r.observer != nil {
		r.observer.Reseeded()
	}
	return nil
}
