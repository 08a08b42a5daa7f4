// Package recognition turns a captured image into a tiered match against the
// subject's enrolled identities.
package recognition

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"golang.org/x/sync/singleflight"
)

// Store caches one gallery snapshot per subject. Readers get an immutable
// snapshot. A cached snapshot is trusted for the refresh interval, after which
// the stored reference version is compared and the gallery reloaded when it
// moved, so training done by another process is picked up.
type Store struct {
	refs         database.ReferenceReader
	indexMinSize int
	refresh      time.Duration
	now          func() time.Time

	mu        sync.Mutex
	snapshots map[int64]*atomic.Pointer[snapshot]
	loads     singleflight.Group
}

type snapshot struct {
	gallery *facematch.Gallery
	version int64
	checked time.Time
}

// NewStore creates a snapshot cache backed by refs. Galleries with at least
// indexMinSize identities are searched through an HNSW index (0 disables it).
// A refresh of 0 checks the reference version on every read.
func NewStore(refs database.ReferenceReader, indexMinSize int, refresh time.Duration) *Store {
	return &Store{
		refs:         refs,
		indexMinSize: indexMinSize,
		refresh:      refresh,
		now:          time.Now,
		snapshots:    make(map[int64]*atomic.Pointer[snapshot]),
	}
}

func (s *Store) slot(subjectID int64) *atomic.Pointer[snapshot] {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.snapshots[subjectID]
	if !ok {
		p = &atomic.Pointer[snapshot]{}
		s.snapshots[subjectID] = p
	}
	return p
}

// Snapshot returns the current gallery of a subject, loading it on first use
// and reloading it once its stored references changed. An untrained subject
// yields an empty gallery.
func (s *Store) Snapshot(ctx context.Context, subjectID int64) (*facematch.Gallery, error) {
	p := s.slot(subjectID)
	if c := p.Load(); c != nil && s.now().Sub(c.checked) < s.refresh {
		return c.gallery, nil
	}

	v, err, _ := s.loads.Do(fmt.Sprint(subjectID), func() (any, error) {
		c := p.Load()
		version, err := s.refs.ReferenceVersion(ctx, subjectID)
		if err != nil {
			return nil, fmt.Errorf("check references of subject %d: %w", subjectID, err)
		}
		if c != nil && c.version == version {
			p.CompareAndSwap(c, &snapshot{gallery: c.gallery, version: version, checked: s.now()})
			return c.gallery, nil
		}

		identities, err := s.refs.LoadReferences(ctx, subjectID)
		if err != nil {
			return nil, fmt.Errorf("load references for subject %d: %w", subjectID, err)
		}
		g := NewGallery(subjectID, identities).WithIndex(s.indexMinSize)
		// An Invalidate racing the load leaves the slot empty for the next read.
		p.CompareAndSwap(c, &snapshot{gallery: g, version: version, checked: s.now()})
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*facematch.Gallery), nil
}

// Invalidate drops the cached snapshot so the next read reloads it.
func (s *Store) Invalidate(subjectID int64) {
	s.slot(subjectID).Store(nil)
}

// NewGallery converts stored identities to a matcher gallery.
func NewGallery(subjectID int64, identities []database.EnrolledIdentity) *facematch.Gallery {
	ids := make([]facematch.Identity, len(identities))
	for i, id := range identities {
		ids[i] = facematch.Identity{
			Roll:       id.Roll,
			Embedding:  id.Embedding,
			ImageCount: id.ImageCount,
			EnrolledAt: id.EnrolledAt,
		}
	}
	return facematch.NewGallery(subjectID, ids)
}
