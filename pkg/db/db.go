// Package db is a thin wrapper around an embedded bbolt database,
// centralizing the functions that interact with it: per-bundle session
// metadata and per-client weekly upload rate limiting.
package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/thehowl/patchkit/diff"
)

// DB is a thin wrapper around a Bolt database. It centralizes functions
// which interact with the database.
//
// Grounded on the teacher's pkg/db/db.go, with File generalized into
// Session (a bundle's metadata instead of a single uploaded file's).
type DB struct {
	DB *bbolt.DB

	err  error
	once sync.Once
}

func (d *DB) init() error {
	d.once.Do(d._init)
	return d.err
}

var (
	bSessions = []byte("sessions")
	bStats    = []byte("stats")

	buckets = [...][]byte{
		bSessions,
		bStats,
	}
)

func (d *DB) _init() {
	err := d.DB.Update(func(tx *bbolt.Tx) error {
		for _, buck := range buckets {
			_, err := tx.CreateBucketIfNotExists(buck)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		d.err = fmt.Errorf("initialization error: %w", err)
	}
}

// Session
// -----------------------------------------------------------------------------

// Session is the metadata recorded for an uploaded bundle (the tar.gz
// archive of a red/green file pair, kept in storage): when it was
// created, its sha256 sum, and the algorithm and chunk count of the
// patch computed between the two files.
type Session struct {
	CreatedAt  time.Time      `json:"created_at"`
	Sum        string         `json:"sum"`
	Algorithm  diff.Algorithm `json:"algorithm"`
	ChunkCount int            `json:"chunk_count"`
}

func (f Session) IsZero() bool {
	return f.Sum == ""
}

func (d *DB) HasSession(id string) (bool, error) {
	if err := d.init(); err != nil {
		return false, err
	}

	var has bool
	err := d.DB.View(func(tx *bbolt.Tx) error {
		has = tx.Bucket(bSessions).Get([]byte(id)) != nil
		return nil
	})
	return has, err
}

func (d *DB) PutSession(id string, s Session) error {
	if err := d.init(); err != nil {
		return err
	}

	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return d.DB.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(bSessions).Put([]byte(id), encoded)
	})
}

func (d *DB) GetSession(id string) (Session, error) {
	if err := d.init(); err != nil {
		return Session{}, err
	}

	var buf []byte
	err := d.DB.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bSessions).Get([]byte(id))
		buf = append(buf, data...)
		return nil
	})
	if err != nil || len(buf) == 0 {
		return Session{}, err
	}

	var s Session
	err = json.Unmarshal(buf, &s)
	return s, err
}

// UsageStat
// -----------------------------------------------------------------------------

type UsageStat struct {
	Period   string `json:"p"`
	NumBytes uint64 `json:"nb"`
	NumCalls uint64 `json:"nc"`
}

type UploadLimits struct {
	MaxBytes uint64
	MaxCalls uint64
}

var ErrLimitsExceeded = errors.New("limits exceeded")

// AddAmountsAndCompare increases the stats for name, and ensures that the
// updated stats are within the given limits. If the limits are exceeded,
// [ErrLimitsExceeded] is returned.
func (d *DB) AddAmountsAndCompare(name string, deltaStat UsageStat, limits UploadLimits) error {
	if err := d.init(); err != nil {
		return err
	}
	err := d.DB.Batch(func(tx *bbolt.Tx) error {
		// get the current value of stat, if any.
		bk := tx.Bucket(bStats)
		val := bk.Get([]byte(name))
		var stat UsageStat
		if len(val) != 0 {
			if err := json.Unmarshal(val, &stat); err != nil {
				return err
			}
		}

		// increase the values in stat.
		if stat.Period == deltaStat.Period {
			stat.NumCalls += deltaStat.NumCalls
			stat.NumBytes += deltaStat.NumBytes
		} else {
			// if the period switched, use the new deltaStat directly.
			stat = deltaStat
		}

		// if the values exceed the limits, return an error.
		if stat.NumBytes > limits.MaxBytes ||
			stat.NumCalls > limits.MaxCalls {
			return ErrLimitsExceeded
		}

		// set the new stats.
		res, err := json.Marshal(stat)
		if err != nil {
			return err
		}
		return bk.Put([]byte(name), res)
	})
	return err
}
