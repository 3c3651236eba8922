// Package storage provides content-addressable storage for uploaded
// red/green patch bundles, keyed by the cford32-encoded sha256 prefix
// computed at upload time: an S3-compatible permanent store, a
// bbolt-backed store usable standalone or as a cache in front of the
// permanent one, and the LRU-by-last-access eviction policy tying the two
// together.
//
// Grounded on the teacher's root-level storage.go, promoted to its own
// package per the import path its own HTTP layer already expects, and
// reshaped around BundleID so the bundle-archive domain (not a generic
// byte blob) is what the interface actually talks about.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/thehowl/cford32"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned by GetBundle when id does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrInvalidBundleID is returned when an id does not look like a
// cford32-encoded upload identifier, before any backend is consulted.
var ErrInvalidBundleID = errors.New("storage: invalid bundle id")

// BundleID identifies a stored red/green archive: the lowercase
// cford32 encoding of the first 5 bytes of its sha256 sum, as minted by
// the upload handler.
type BundleID string

// bundleIDLen is cford32's encoded length for a 5-byte (40 bit) input:
// ceil(40/5) == 8 characters.
const bundleIDLen = 8

// Valid reports whether id has the shape of a cford32-encoded bundle
// identifier: the right length, decoding to exactly 5 bytes.
func (id BundleID) Valid() bool {
	if len(id) != bundleIDLen {
		return false
	}
	var buf [5]byte
	n, err := cford32.Decode(buf[:], []byte(id))
	return err == nil && n == len(buf)
}

// Storage stores bundle archives, keyed by BundleID. Bundle sizes are
// expected to be in general <1MB, hence no io.Reader support. Storage
// must not delete bundles on its own.
type Storage interface {
	// GetBundle returns ErrNotFound if id does not exist, or
	// ErrInvalidBundleID if id is not well-formed.
	GetBundle(ctx context.Context, id BundleID) ([]byte, error)
	// PutBundle overwrites if id exists. It returns ErrInvalidBundleID
	// if id is not well-formed.
	PutBundle(ctx context.Context, id BundleID, data []byte) error
	// DeleteBundle returns nil on not found.
	DeleteBundle(ctx context.Context, id BundleID) error
}

// ListStorage adds the ListBundles operation to Storage, allowing
// callers to enumerate all stored bundles.
type ListStorage interface {
	Storage
	// ListBundles calls cb for every stored bundle. Callers should NOT
	// retain b, rather make a copy if needed.
	ListBundles(ctx context.Context, cb func(id BundleID, b []byte) error) error
}

// MinioStorage stores objects in an S3-compatible bucket via minio-go.
type MinioStorage struct {
	cl         *minio.Client
	bucketName string
}

var _ Storage = (*MinioStorage)(nil)

// NewMinioStorage returns a Storage backed by the given minio client and
// bucket.
func NewMinioStorage(cl *minio.Client, bucketName string) *MinioStorage {
	return &MinioStorage{cl: cl, bucketName: bucketName}
}

func (m *MinioStorage) GetBundle(ctx context.Context, id BundleID) ([]byte, error) {
	if !id.Valid() {
		return nil, ErrInvalidBundleID
	}
	obj, err := m.cl.GetObject(ctx, m.bucketName, string(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil, ErrNotFound
	}
	return b, err
}

func (m *MinioStorage) PutBundle(ctx context.Context, id BundleID, data []byte) error {
	if !id.Valid() {
		return ErrInvalidBundleID
	}
	_, err := m.cl.PutObject(ctx, m.bucketName, string(id),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

func (m *MinioStorage) DeleteBundle(ctx context.Context, id BundleID) error {
	return m.cl.RemoveObject(ctx, m.bucketName, string(id), minio.RemoveObjectOptions{})
}

// DBStorage stores objects as values in a bbolt bucket.
type DBStorage struct {
	db         *bbolt.DB
	bucketName []byte
}

var _ ListStorage = (*DBStorage)(nil)

// NewDBStorage creates a new DB storage, additionally ensuring that the
// given bucketName exists in the db.
//
// It panics if db.Update returns an error.
func NewDBStorage(db *bbolt.DB, bucketName []byte) *DBStorage {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		panic(fmt.Errorf("error creating bucket in db: %w", err))
	}
	return &DBStorage{
		db:         db,
		bucketName: bucketName,
	}
}

func (m *DBStorage) GetBundle(ctx context.Context, id BundleID) ([]byte, error) {
	if !id.Valid() {
		return nil, ErrInvalidBundleID
	}
	var val []byte
	err := m.db.View(func(tx *bbolt.Tx) error {
		bx := tx.Bucket(m.bucketName)
		val = append(val, bx.Get([]byte(id))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(val) == 0 {
		return nil, ErrNotFound
	}
	return val, nil
}

func (m *DBStorage) PutBundle(ctx context.Context, id BundleID, data []byte) error {
	if !id.Valid() {
		return ErrInvalidBundleID
	}
	return m.db.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(m.bucketName).Put([]byte(id), data)
	})
}

func (m *DBStorage) DeleteBundle(ctx context.Context, id BundleID) error {
	return m.db.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(m.bucketName).Delete([]byte(id))
	})
}

func (m *DBStorage) ListBundles(ctx context.Context, cb func(id BundleID, b []byte) error) error {
	return m.db.View(func(tx *bbolt.Tx) error {
		bx := tx.Bucket(m.bucketName)
		return bx.ForEach(func(k, v []byte) error {
			return cb(BundleID(k), v)
		})
	})
}

type cachedObject struct {
	id          BundleID
	size        uint64
	lastAccess  time.Time
	lastAccessM sync.Mutex
	ready       chan struct{}
}

func (c *cachedObject) access() {
	n := time.Now()
	// TryLock allows us to fast path in case another goroutine is
	// accessing c.lastAccess right now, and allows us to report the time
	// correctly, while still performing the syscall with time.Now() outside
	// of the lock.
	if c.lastAccessM.TryLock() {
		c.lastAccess = n
		c.lastAccessM.Unlock()
	}
}

// CachedStorage fronts a permanent Storage with a size-bounded,
// LRU-by-last-access ListStorage cache.
type CachedStorage struct {
	cache     ListStorage
	permanent Storage
	maxSize   uint64 // bytes. actual storage may be slightly higher.

	sync.RWMutex
	objects map[BundleID]*cachedObject
	// send in this channel after adding new objects.
	cleaning chan struct{}
}

// NewCachedStorage returns a CachedStorage fronting permanent with cache,
// evicting least-recently-accessed objects once the cache exceeds
// maxSize bytes.
func NewCachedStorage(cache ListStorage, permanent Storage, maxSize uint64) (*CachedStorage, error) {
	objects := make(map[BundleID]*cachedObject)
	ready := make(chan struct{})
	close(ready)
	err := cache.ListBundles(context.Background(), func(id BundleID, b []byte) error {
		objects[id] = &cachedObject{
			id:         id,
			size:       uint64(len(b)),
			lastAccess: time.Now(),
			ready:      ready,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c := &CachedStorage{
		cache:     cache,
		permanent: permanent,
		maxSize:   maxSize,

		objects:  objects,
		cleaning: make(chan struct{}, 1),
	}
	go c.cleaner()
	return c, nil
}

var _ Storage = (*CachedStorage)(nil)

const cleanSleep = time.Second

func (c *CachedStorage) cacheSize() uint64 {
	var sz uint64
	c.RLock()
	for _, obj := range c.objects {
		sz += obj.size
	}
	c.RUnlock()
	return sz
}

func (c *CachedStorage) evict(els []*cachedObject) {
	// We're essentially putting the c.objects map in read-only while evicting
	// cache. This is hacky, but it avoids race conditions, ie. deleting in the
	// underlying cache something created in the meantime.
	c.RLock()
	defer c.RUnlock()
	for _, el := range els {
		if _, ok := c.objects[el.id]; ok {
			// created in the meantime
			continue
		}
		if err := c.cache.DeleteBundle(context.Background(), el.id); err != nil {
			log.Printf("error deleting in cache eviction: %v", err)
		}
	}
}

func (c *CachedStorage) doClean() {
	c.Lock()
	defer c.Unlock()

	objects := make([]*cachedObject, 0, len(c.objects))
	var sz uint64
	for _, obj := range c.objects {
		objects = append(objects, obj)
		obj.lastAccessM.Lock()
		sz += obj.size
	}

	slices.SortFunc(objects, func(i, j *cachedObject) int {
		return i.lastAccess.Compare(j.lastAccess)
	})

	// Target reaching 95% of maxSize, to give some leeway until next doClean.
	collectTarget := (sz - c.maxSize) + c.maxSize/20
	var collected uint64
	var del []*cachedObject

	for i, obj := range objects {
		if collected >= collectTarget {
			// collected enough.
			// set del if not set, unlock lastAccess
			if del == nil {
				del = objects[:i]
			}
			obj.lastAccessM.Unlock()
		} else {
			collected += obj.size
			delete(c.objects, obj.id)
		}
	}
	if del == nil {
		// unlikely, but could happen?
		del = objects
	}

	go c.evict(del)
}

func (c *CachedStorage) cleaner() {
	for range c.cleaning {
		sz := c.cacheSize()
		if sz >= c.maxSize {
			// limit reached.
			c.doClean()
		}

		time.Sleep(cleanSleep)
	}
}

func (c *CachedStorage) cacheHas(id BundleID) bool {
	c.RWMutex.RLock()
	obj, ok := c.objects[id]
	c.RWMutex.RUnlock()
	if !ok {
		return false
	}
	<-obj.ready
	if obj.size == 0 {
		return false
	}
	obj.access()
	return true
}

func (c *CachedStorage) cacheStore(ctx context.Context, id BundleID, b []byte, x *cachedObject) {
	if err := c.cache.PutBundle(ctx, id, b); err != nil {
		log.Printf("cache does not correctly store bundle: %v", err)
		return
	}
	x.lastAccess = time.Now()
	x.size = uint64(len(b))

	// new object added; schedule cleaning.
	select {
	case c.cleaning <- struct{}{}:
	default:
	}
}

func (c *CachedStorage) GetBundle(ctx context.Context, id BundleID) ([]byte, error) {
	if !id.Valid() {
		return nil, ErrInvalidBundleID
	}

	// fast path: bundle is cached
	if c.cacheHas(id) {
		return c.cache.GetBundle(ctx, id)
	}

	// attempt to gain "ownership" for retrieving the given key
	// from permanent storage.
	co, ours := &cachedObject{id: id, ready: make(chan struct{})}, false
	c.Lock()
	if mapObject, ok := c.objects[id]; ok {
		co = mapObject
	} else {
		c.objects[id] = co
		ours = true
	}
	c.Unlock()

	if !ours {
		<-co.ready
		if co.size > 0 {
			return c.cache.GetBundle(ctx, id)
		}
		return nil, ErrNotFound
	}

	// we are responsible for retrieving the bundle and putting it in cache.
	defer close(co.ready)
	b, err := c.permanent.GetBundle(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cacheStore(ctx, id, b, co)

	return b, nil
}

func (c *CachedStorage) PutBundle(ctx context.Context, id BundleID, data []byte) error {
	if !id.Valid() {
		return ErrInvalidBundleID
	}

	// try putting in permanent
	if err := c.permanent.PutBundle(ctx, id, data); err != nil {
		return err
	}
	// succeeded; store in cache too.
	co := &cachedObject{id: id, ready: make(chan struct{})}
	c.Lock()
	c.objects[id] = co
	c.Unlock()

	defer close(co.ready)
	c.cacheStore(ctx, id, data, co)

	return nil
}

func (c *CachedStorage) DeleteBundle(ctx context.Context, id BundleID) error {
	// try deleting in permanent
	if err := c.permanent.DeleteBundle(ctx, id); err != nil {
		return err
	}

	// succeeded; delete from cache too.
	c.Lock()
	_, exist := c.objects[id]
	delete(c.objects, id)
	c.Unlock()
	if !exist {
		return nil
	}

	if err := c.cache.DeleteBundle(ctx, id); err != nil {
		log.Printf("cache does not correctly delete bundle: %v", err)
	}
	return nil
}
