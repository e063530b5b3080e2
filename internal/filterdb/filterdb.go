// Copyright (c) 2015-2023 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package filterdb provides persistent storage for named scalable bloom
// filters.
package filterdb

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/decred/dcrd/crypto/blake256"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bloomdb/bloomd/sbloom"
	"github.com/bloomdb/bloomd/serial"
)

const (
	// currentStoreVersion is the version of the store metadata and key
	// layout this package writes and understands.
	currentStoreVersion = 1

	// DefaultErrorRate is the target false positive rate used for filters
	// created without an explicit rate when no override is configured.
	DefaultErrorRate = 0.01

	// recordTypeBloom is the record type tag for serialized scalable bloom
	// filters.  It is the only type the store currently writes, and
	// records with any other tag are reported as mismatched types.
	recordTypeBloom = 1
)

// storeKeySet defines a type used to identify the different sets of data the
// store keeps.  Each key set is given a unique prefix so its entries can be
// iterated independently and new sets can be introduced without disturbing
// existing records.
type storeKeySet uint8

const (
	// storeKeySetInfo identifies the key set for store metadata such as
	// the version.
	storeKeySetInfo storeKeySet = iota + 1

	// storeKeySetFilter identifies the key set for serialized filter
	// records keyed by filter name.
	storeKeySetFilter
)

// Key set versions.
const (
	infoKeySetVersion   = 1
	filterKeySetVersion = 1
)

// prefixedKey returns a new key that consists of the provided prefix followed
// by the provided key.
func prefixedKey(prefix []byte, key []byte) []byte {
	result := make([]byte, len(prefix)+len(key))
	copy(result, prefix)
	copy(result[len(prefix):], key)
	return result
}

var (
	// storePrefixInfo is the prefix for all keys in the store metadata key
	// set.
	storePrefixInfo = []byte{byte(storeKeySetInfo), infoKeySetVersion}

	// storePrefixFilter is the prefix for all keys in the filter record
	// key set.
	storePrefixFilter = []byte{byte(storeKeySetFilter), filterKeySetVersion}

	// storeInfoVersionKey is the key for the store version.
	storeInfoVersionKey = prefixedKey(storePrefixInfo, []byte("version"))

	// storeInfoCreatedKey is the key for the store creation time.
	storeInfoCreatedKey = prefixedKey(storePrefixInfo, []byte("created"))
)

// filterKey returns the key for the serialized record of the filter with the
// provided name.
func filterKey(name string) []byte {
	return prefixedKey(storePrefixFilter, []byte(name))
}

// fileExists returns whether or not the provided path exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// convertLdbErr converts the passed leveldb error into a store error with an
// equivalent error kind and the passed description.
func convertLdbErr(ldbErr error, desc string) Error {
	// Use the general store failure kind unless the error is recognized.
	kind := ErrStoreFailure
	switch {
	case ldberrors.IsCorrupted(ldbErr):
		kind = ErrStoreCorruption
	case errors.Is(ldbErr, leveldb.ErrClosed):
		kind = ErrStoreClosed
	}
	return makeError(kind, fmt.Sprintf("%s: %v", desc, ldbErr))
}

// serializeFilterRecord returns the serialized record for the provided
// filter.
//
// The record format is:
//
//	<record type><serialization version><filter stream>
//
// The record type and serialization version are both serialized as variable
// length quantities.  Carrying the serialization version in the record keeps
// the filter stream itself free of versioning concerns.
func serializeFilterRecord(f *sbloom.Filter) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 4+f.SerializeSize()))
	if err := serial.WriteVarInt(buf, recordTypeBloom); err != nil {
		return nil, err
	}
	if err := serial.WriteVarInt(buf, sbloom.FilterVersion); err != nil {
		return nil, err
	}
	if err := f.Encode(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeFilterRecord decodes the serialized record for the filter with
// the provided name.  The name is only used to annotate errors.
//
// An Error with kind ErrMismatchedType is returned when the record holds
// something other than a bloom filter.
func deserializeFilterRecord(name string, serialized []byte) (*sbloom.Filter, error) {
	r := bytes.NewReader(serialized)
	recordType, err := serial.ReadVarInt(r)
	if err != nil {
		desc := fmt.Sprintf("corrupt record header for %q: %v", name, err)
		return nil, makeError(ErrStoreCorruption, desc)
	}
	if recordType != recordTypeBloom {
		desc := fmt.Sprintf("record %q holds type %d which is not a bloom "+
			"filter", name, recordType)
		return nil, makeError(ErrMismatchedType, desc)
	}
	version, err := serial.ReadVarInt(r)
	if err != nil {
		desc := fmt.Sprintf("corrupt record header for %q: %v", name, err)
		return nil, makeError(ErrStoreCorruption, desc)
	}
	if version > math.MaxUint32 {
		desc := fmt.Sprintf("record %q claims unsupported serialization "+
			"version %d", name, version)
		return nil, makeError(ErrStoreCorruption, desc)
	}
	f, err := sbloom.Decode(r, uint32(version))
	if err != nil {
		desc := fmt.Sprintf("failed to decode filter %q: %v", name, err)
		return nil, Error{Err: err, Description: desc}
	}
	return f, nil
}

// Options provides the caller the ability to adjust the behavior of an opened
// store.
type Options struct {
	// DefaultErrorRate is the target false positive rate applied to
	// filters created without an explicit rate.  Zero selects
	// DefaultErrorRate and values outside the range (0, 1) are rejected.
	DefaultErrorRate float64

	// OnGrowth is invoked whenever a mutation causes the chain of a
	// stored filter to grow.  It is provided the filter name, the new
	// chain length, and the capacity of the filter that was added to the
	// chain.  The callback runs while the store lock is held, so it must
	// not call back into the store.
	OnGrowth func(name string, numFilters int, newCapacity uint64)
}

// Store provides persistent storage for named scalable bloom filters backed
// by leveldb.  Every filter is kept in memory and mutations are written
// through to the backing database, so lookups never touch disk once the
// store has been opened.
//
// All functions are safe for concurrent access.
type Store struct {
	// mtx protects everything below it.
	mtx sync.RWMutex

	// db is the underlying leveldb database.
	db *leveldb.DB

	// closed indicates the store has been closed.
	closed bool

	// defaultRate is the target false positive rate applied to filters
	// created without an explicit rate.
	defaultRate float64

	// onGrowth, when set, is invoked whenever a mutation causes the chain
	// of a stored filter to grow.
	onGrowth func(name string, numFilters int, newCapacity uint64)

	// filters houses all stored filters keyed by name.
	filters map[string]*sbloom.Filter

	// foreign tracks names of records that do not hold a bloom filter so
	// operations against them report a type mismatch.
	foreign map[string]struct{}
}

// initStoreInfo creates the metadata records for a new store or verifies an
// existing store is a version the running software understands.
func (s *Store) initStoreInfo(create bool) error {
	if create {
		var versionBuf bytes.Buffer
		if err := serial.WriteUint32(&versionBuf, currentStoreVersion); err != nil {
			return err
		}
		var createdBuf bytes.Buffer
		if err := serial.WriteUint64(&createdBuf, uint64(time.Now().Unix())); err != nil {
			return err
		}
		batch := new(leveldb.Batch)
		batch.Put(storeInfoVersionKey, versionBuf.Bytes())
		batch.Put(storeInfoCreatedKey, createdBuf.Bytes())
		if err := s.db.Write(batch, nil); err != nil {
			return convertLdbErr(err, "failed to store version info")
		}
		return nil
	}

	serialized, err := s.db.Get(storeInfoVersionKey, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return makeError(ErrStoreCorruption, "store version record is missing")
		}
		return convertLdbErr(err, "failed to load store version")
	}
	version, err := serial.ReadUint32(bytes.NewReader(serialized))
	if err != nil {
		desc := fmt.Sprintf("corrupt store version record: %v", err)
		return makeError(ErrStoreCorruption, desc)
	}
	if version != currentStoreVersion {
		desc := fmt.Sprintf("store version %d does not match the supported "+
			"version %d", version, currentStoreVersion)
		return makeError(ErrStoreVersion, desc)
	}
	return nil
}

// loadFilters reads every stored filter record into memory.  Records that
// hold a type other than a bloom filter are tracked by name so operations
// against them report a type mismatch.
func (s *Store) loadFilters() error {
	iter := s.db.NewIterator(util.BytesPrefix(storePrefixFilter), nil)
	for iter.Next() {
		name := string(iter.Key()[len(storePrefixFilter):])
		f, err := deserializeFilterRecord(name, iter.Value())
		if err != nil {
			if errors.Is(err, ErrMismatchedType) {
				s.foreign[name] = struct{}{}
				continue
			}
			iter.Release()
			return err
		}
		s.filters[name] = f
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return convertLdbErr(err, "failed to load filter records")
	}
	return nil
}

// Open loads the filter store at the provided path and creates it when it
// does not already exist.  The provided options may be nil to accept the
// defaults.
func Open(path string, opts *Options) (*Store, error) {
	defaultRate := DefaultErrorRate
	var onGrowth func(string, int, uint64)
	if opts != nil {
		if opts.DefaultErrorRate != 0 {
			rate := opts.DefaultErrorRate
			if math.IsNaN(rate) || rate <= 0 || rate >= 1 {
				desc := fmt.Sprintf("default error rate of %v is not in the "+
					"valid range (0, 1)", rate)
				return nil, makeError(ErrInvalidOptions, desc)
			}
			defaultRate = rate
		}
		onGrowth = opts.OnGrowth
	}

	// Ensure the directory that houses the store exists.
	dbExists := fileExists(path)
	if !dbExists {
		_ = os.MkdirAll(filepath.Dir(path), 0700)
	}

	// Open the database (will create it if needed).
	ldbOpts := opt.Options{
		ErrorIfExist: !dbExists,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	log.Infof("Loading filter store from '%s'", path)
	db, err := leveldb.OpenFile(path, &ldbOpts)
	if err != nil {
		return nil, convertLdbErr(err, "failed to open filter store")
	}

	s := &Store{
		db:          db,
		defaultRate: defaultRate,
		onGrowth:    onGrowth,
		filters:     make(map[string]*sbloom.Filter),
		foreign:     make(map[string]struct{}),
	}
	if err := s.initStoreInfo(!dbExists); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadFilters(); err != nil {
		db.Close()
		return nil, err
	}
	log.Infof("Filter store loaded with %d filters", len(s.filters))
	return s, nil
}

// Close closes the store and releases the underlying database.  All further
// operations against the store will fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return makeError(ErrStoreClosed, "store is closed")
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return convertLdbErr(err, "failed to close filter store")
	}
	return nil
}

// lookupFilter returns the in-memory filter with the provided name.
//
// This function MUST be called with the store lock held (for reads).
func (s *Store) lookupFilter(name string) (*sbloom.Filter, error) {
	f, ok := s.filters[name]
	if !ok {
		if _, ok := s.foreign[name]; ok {
			desc := fmt.Sprintf("record %q does not hold a bloom filter", name)
			return nil, makeError(ErrMismatchedType, desc)
		}
		desc := fmt.Sprintf("filter %q does not exist", name)
		return nil, makeError(ErrFilterNotFound, desc)
	}
	return f, nil
}

// persistFilter writes the serialized record for the provided filter to the
// backing database.
//
// This function MUST be called with the store lock held (for writes).
func (s *Store) persistFilter(name string, f *sbloom.Filter) error {
	serialized, err := serializeFilterRecord(f)
	if err != nil {
		return err
	}
	err = s.db.Put(filterKey(name), serialized, nil)
	if err != nil {
		desc := fmt.Sprintf("failed to store filter %q", name)
		return convertLdbErr(err, desc)
	}
	return nil
}

// notifyGrowth logs chain growth for the provided filter and invokes the
// growth callback when one is configured.
//
// This function MUST be called with the store lock held (for writes).
func (s *Store) notifyGrowth(name string, f *sbloom.Filter, prevNumFilters int) {
	numFilters := f.NumFilters()
	if numFilters <= prevNumFilters {
		return
	}
	newCapacity := f.Info().Filters[0].Capacity
	log.Debugf("Filter %q grew to %d filters (new head capacity %d)", name,
		numFilters, newCapacity)
	if s.onGrowth != nil {
		s.onGrowth(name, numFilters, newCapacity)
	}
}

// CreateFilter creates a new filter under the provided name and seeds it with
// the provided items.  A capacity of zero selects a capacity based on the
// number of seed items and an error rate of zero selects the store default.
// Fixed filters accept their seed items but reject all later additions.
//
// The new filter is persisted before it becomes visible, so a failure leaves
// the store without any trace of it.
//
// An Error with kind ErrFilterExists is returned when a filter with the same
// name already exists.
func (s *Store) CreateFilter(name string, capacity uint64, errorRate float64, fixed bool, items [][]byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return makeError(ErrStoreClosed, "store is closed")
	}
	if _, ok := s.filters[name]; ok {
		desc := fmt.Sprintf("filter %q already exists", name)
		return makeError(ErrFilterExists, desc)
	}
	if _, ok := s.foreign[name]; ok {
		desc := fmt.Sprintf("record %q does not hold a bloom filter", name)
		return makeError(ErrMismatchedType, desc)
	}

	if errorRate == 0 {
		errorRate = s.defaultRate
	}
	if capacity == 0 {
		capacity = uint64(len(items))
	}
	newFilter := sbloom.NewFilter
	if fixed {
		newFilter = sbloom.NewFixedFilter
	}
	f, err := newFilter(capacity, errorRate)
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, err := f.Add(item); err != nil {
			return err
		}
	}
	if err := s.persistFilter(name, f); err != nil {
		return err
	}
	s.filters[name] = f
	log.Debugf("Created filter %q (capacity %d, error rate %v, %d seed items)",
		name, capacity, errorRate, len(items))
	s.notifyGrowth(name, f, 1)
	return nil
}

// AddItems adds the provided items to the filter with the provided name and
// returns a slice that indicates, for each item in order, whether the item
// was newly added as opposed to already being a likely member.  When the
// filter does not already exist and create is true, it is created with the
// store default error rate and a capacity based on the number of items,
// otherwise an Error with kind ErrFilterNotFound is returned.  The existence
// check and the additions happen under a single lock acquisition, so a
// concurrent removal of the filter cannot cause it to be silently recreated.
//
// An Error with kind ErrFilterFixed is returned when the filter was created
// in fixed mode, in which case no items are added.
func (s *Store) AddItems(name string, create bool, items [][]byte) ([]bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil, makeError(ErrStoreClosed, "store is closed")
	}
	if _, ok := s.foreign[name]; ok {
		desc := fmt.Sprintf("record %q does not hold a bloom filter", name)
		return nil, makeError(ErrMismatchedType, desc)
	}

	f, exists := s.filters[name]
	prevNumFilters := 1
	if !exists {
		if !create {
			desc := fmt.Sprintf("filter %q does not exist", name)
			return nil, makeError(ErrFilterNotFound, desc)
		}
		var err error
		f, err = sbloom.NewFilter(uint64(len(items)), s.defaultRate)
		if err != nil {
			return nil, err
		}
		log.Debugf("Creating filter %q on first add (%d items)", name,
			len(items))
	} else {
		if f.IsFixed() {
			desc := fmt.Sprintf("filter %q does not permit additions", name)
			return nil, makeError(ErrFilterFixed, desc)
		}
		prevNumFilters = f.NumFilters()
	}

	added := make([]bool, 0, len(items))
	for _, item := range items {
		isNew, err := f.Add(item)
		if err != nil {
			return nil, err
		}
		added = append(added, isNew)
	}
	if err := s.persistFilter(name, f); err != nil {
		return nil, err
	}
	s.filters[name] = f
	s.notifyGrowth(name, f, prevNumFilters)
	return added, nil
}

// ContainsItem returns whether the provided item is a likely member of the
// filter with the provided name.  False positives are possible at the filter
// error rate, while false negatives are not.
//
// An Error with kind ErrFilterNotFound is returned when no filter with the
// provided name exists.
func (s *Store) ContainsItem(name string, item []byte) (bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return false, makeError(ErrStoreClosed, "store is closed")
	}
	f, err := s.lookupFilter(name)
	if err != nil {
		return false, err
	}
	return f.Contains(item), nil
}

// FilterInfo returns usage details for the filter with the provided name.
func (s *Store) FilterInfo(name string) (sbloom.Info, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return sbloom.Info{}, makeError(ErrStoreClosed, "store is closed")
	}
	f, err := s.lookupFilter(name)
	if err != nil {
		return sbloom.Info{}, err
	}
	return f.Info(), nil
}

// FilterHash returns the BLAKE-256 hash of the serialization of the filter
// with the provided name.
func (s *Store) FilterHash(name string) ([blake256.Size]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return [blake256.Size]byte{}, makeError(ErrStoreClosed, "store is closed")
	}
	f, err := s.lookupFilter(name)
	if err != nil {
		return [blake256.Size]byte{}, err
	}
	return f.Hash(), nil
}

// DropFilter removes the filter with the provided name from the store.
//
// An Error with kind ErrFilterNotFound is returned when no filter with the
// provided name exists.
func (s *Store) DropFilter(name string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return makeError(ErrStoreClosed, "store is closed")
	}
	if _, err := s.lookupFilter(name); err != nil {
		return err
	}
	err := s.db.Delete(filterKey(name), nil)
	if err != nil {
		desc := fmt.Sprintf("failed to remove filter %q", name)
		return convertLdbErr(err, desc)
	}
	delete(s.filters, name)
	log.Debugf("Dropped filter %q", name)
	return nil
}

// ListFilters returns the names of all stored filters in lexicographical
// order.
func (s *Store) ListFilters() ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return nil, makeError(ErrStoreClosed, "store is closed")
	}
	names := make([]string, 0, len(s.filters))
	for name := range s.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
