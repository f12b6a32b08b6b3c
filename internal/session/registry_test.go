package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInsertionOrder(t *testing.T) {
	r := NewRegistry()
	r.Create(Session{ID: "a"})
	r.Create(Session{ID: "b"})
	r.Create(Session{ID: "c"})

	ids := func(sessions []Session) []string {
		var out []string
		for _, s := range sessions {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(r.ListAll()))
}

func TestRegistryListAllIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Create(Session{ID: "a", Status: StatusPreparing})
	r.Create(Session{ID: "b", Status: StatusUploading, Progress: 30})

	first := r.ListAll()
	second := r.ListAll()

	assert.Equal(t, first, second)
}

func TestRegistryListAllReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Create(Session{ID: "a", Progress: 10})

	snapshot := r.ListAll()
	r.Apply("a", Started{})
	r.Apply("a", Progressed{BytesSent: 90, BytesTotal: 100})

	assert.Equal(t, 10, snapshot[0].Progress, "snapshot must not see later mutations")
}

func TestRegistryApplyIsolation(t *testing.T) {
	r := NewRegistry()
	r.Create(Session{ID: "a", Status: StatusUploading})
	r.Create(Session{ID: "b", Status: StatusUploading})

	_, ok := r.Apply("a", Progressed{BytesSent: 70, BytesTotal: 100})
	require.True(t, ok)

	b, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, 0, b.Progress, "mutating one session must not touch another")
}

func TestRegistryApplyUnknownID(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Apply("missing", Started{})
	assert.False(t, ok)
}

func TestRegistryRemoveByID(t *testing.T) {
	r := NewRegistry()
	r.Create(Session{ID: "a"})
	r.Create(Session{ID: "b"})

	r.RemoveByID("a")

	_, found := r.Get("a")
	assert.False(t, found)
	all := r.ListAll()
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)

	// Removing twice is harmless.
	r.RemoveByID("a")
	assert.Len(t, r.ListAll(), 1)
}

func TestRegistryConcurrentProgressEvents(t *testing.T) {
	r := NewRegistry()
	const n = 8
	for i := 0; i < n; i++ {
		r.Create(Session{ID: fmt.Sprintf("s%d", i), Status: StatusUploading})
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for sent := int64(1); sent <= 100; sent++ {
				r.Apply(id, Progressed{BytesSent: sent, BytesTotal: 100})
			}
		}(fmt.Sprintf("s%d", i))
	}
	wg.Wait()

	for _, s := range r.ListAll() {
		assert.Equal(t, 95, s.Progress, "session %s", s.ID)
	}
}
