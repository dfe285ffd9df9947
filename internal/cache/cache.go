// Package cache holds the best-effort key-value cache used for large
// cluster metadata lookups.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a best-effort key-value store. Concurrent writers for the same
// key may race; the last write wins.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Memory is an in-process Cache with per-entry expiry.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a cache whose entries live for ttl and are swept every
// cleanup interval.
func NewMemory(ttl, cleanup time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &Memory{c: gocache.New(ttl, cleanup)}
}

func (m *Memory) Get(key string) (any, bool) {
	return m.c.Get(key)
}

func (m *Memory) Set(key string, value any) {
	m.c.SetDefault(key, value)
}

// Len returns the number of entries, including expired ones not yet swept.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

// MemberKey builds the key for a cluster's metadata from the docket, the
// cluster id and a digest of the ordered member tuple.
func MemberKey(docketID string, clusterID int64, members []int64) string {
	return fmt.Sprintf("clusterdesk.cluster-%s-%d-%s", docketID, clusterID, MemberDigest(members))
}

// MemberDigest returns a short SHA-256 hex digest of the ordered ids.
func MemberDigest(members []int64) string {
	h := sha256.New()
	var b [8]byte
	for _, m := range members {
		binary.BigEndian.PutUint64(b[:], uint64(m))
		h.Write(b[:])
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}
