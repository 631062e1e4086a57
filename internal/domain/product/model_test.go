package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProduct_ApplyPushResult(t *testing.T) {
	now := time.Now()
	p := &Product{
		WorkingContent:       Content{"title": "New Title", "regular_price": "19.99", "sku": "A-1"},
		StoreSnapshotContent: Content{"title": "Old Title", "regular_price": "9.99", "sku": "A-1"},
		DirtyFields:          []string{"title", "regular_price"},
		SyncStatus:           "pending",
	}

	p.ApplyPushResult([]string{"title", "regular_price"}, nil, now)

	assert.Equal(t, p.WorkingContent["title"], p.StoreSnapshotContent["title"])
	assert.Equal(t, p.WorkingContent["regular_price"], p.StoreSnapshotContent["regular_price"])
	assert.Empty(t, p.DirtyFields)
	assert.Equal(t, "synced", p.SyncStatus)
	assert.Equal(t, now, p.StoreLastModifiedAt)
}

func TestProduct_ApplyPushResult_PartialFields(t *testing.T) {
	p := &Product{
		WorkingContent:       Content{"title": "New", "description": "Draft"},
		StoreSnapshotContent: Content{"title": "Old", "description": "Live"},
		DirtyFields:          []string{"title", "description"},
		SyncStatus:           "pending",
	}

	p.ApplyPushResult([]string{"title"}, nil, time.Now())

	assert.Equal(t, []string{"description"}, p.DirtyFields)
	assert.Equal(t, "New", p.StoreSnapshotContent["title"])
	assert.Equal(t, "Live", p.StoreSnapshotContent["description"])
	assert.Equal(t, "pending", p.SyncStatus)
}

func TestProduct_ApplyPushResult_PrefersAdapterSnapshot(t *testing.T) {
	p := &Product{
		WorkingContent:       Content{"regular_price": "19.999"},
		StoreSnapshotContent: Content{},
		DirtyFields:          []string{"regular_price"},
	}

	// The platform may canonicalize values; the returned snapshot wins.
	p.ApplyPushResult([]string{"regular_price"}, Content{"regular_price": "20.00"}, time.Now())

	assert.Equal(t, "20.00", p.StoreSnapshotContent["regular_price"])
}

func TestProduct_ApplyPushResult_IgnoresSnapshotKeysOutsidePush(t *testing.T) {
	p := &Product{
		WorkingContent:       Content{"title": "New"},
		StoreSnapshotContent: Content{"title": "Old", "sku": "A-1"},
		DirtyFields:          []string{"title", "sku"},
		SyncStatus:           "pending",
	}

	// Only pushed fields fold into the snapshot; an extra key in the
	// returned snapshot must not touch a field that was never pushed.
	p.ApplyPushResult([]string{"title"}, Content{"title": "New", "sku": "B-9"}, time.Now())

	assert.Equal(t, "A-1", p.StoreSnapshotContent["sku"])
	assert.Equal(t, []string{"sku"}, p.DirtyFields)
	assert.Equal(t, "pending", p.SyncStatus)
}

func TestProduct_ApplyRemote(t *testing.T) {
	modified := time.Now().Add(-time.Minute)
	p := &Product{
		WorkingContent:       Content{"title": "Local Edit"},
		StoreSnapshotContent: Content{"title": "Old"},
		DirtyFields:          []string{"title"},
		SyncStatus:           "pending",
	}

	remote := Content{"title": "Remote Title", "regular_price": "5.00"}
	p.ApplyRemote(remote, modified)

	assert.Equal(t, remote, p.StoreSnapshotContent)
	assert.Equal(t, remote, p.WorkingContent)
	assert.Empty(t, p.DirtyFields)
	assert.Equal(t, "synced", p.SyncStatus)
	assert.Equal(t, modified, p.StoreLastModifiedAt)

	// Layers must not alias the same map.
	p.WorkingContent["title"] = "Another Edit"
	assert.Equal(t, "Remote Title", p.StoreSnapshotContent["title"])
}

func TestProduct_IsDirty(t *testing.T) {
	p := &Product{DirtyFields: []string{"title"}}
	assert.True(t, p.IsDirty("title"))
	assert.False(t, p.IsDirty("sku"))
}
