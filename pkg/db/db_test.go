package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/thehowl/patchkit/diff"
)

func newDB(t *testing.T) *DB {
	t.Helper()
	bdb, err := bbolt.Open(filepath.Join(t.TempDir(), "db.bolt"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, bdb.Close())
	})
	return &DB{DB: bdb}
}

func TestSessions(t *testing.T) {
	dt := time.Date(2025, time.January, 11, 12, 0, 0, 0, time.UTC)
	s := Session{
		CreatedAt:  dt,
		Sum:        "abcdef",
		Algorithm:  diff.XDiff,
		ChunkCount: 2,
	}

	d := newDB(t)
	err := d.PutSession("hello", s)
	require.NoError(t, err)

	// getting the session should succeed and return the same struct as s.
	{
		res, err := d.GetSession("hello")
		assert.NoError(t, err)
		assert.Equal(t, s, res)
	}
	{
		has, err := d.HasSession("hello")
		assert.NoError(t, err)
		assert.Equal(t, true, has)
	}

	// getting a non-existent session should return no error and a zero Session.
	{
		res, err := d.GetSession("hello1")
		assert.NoError(t, err)
		assert.Equal(t, Session{}, res)
	}
	{
		has, err := d.HasSession("hello1")
		assert.NoError(t, err)
		assert.Equal(t, false, has)
	}
}

func TestAddAmountsAndCompare(t *testing.T) {
	type call struct {
		name   string
		d      UsageStat
		lim    UploadLimits
		result error
	}
	tt := []struct {
		name  string
		calls []call
	}{
		{
			"excess_calls",
			[]call{
				{"morgan", UsageStat{Period: "2025/1", NumBytes: 100, NumCalls: 1}, UploadLimits{MaxBytes: 1 << 30, MaxCalls: 1}, nil},
				{"morgan", UsageStat{Period: "2025/1", NumBytes: 100, NumCalls: 1}, UploadLimits{MaxBytes: 1 << 30, MaxCalls: 1}, ErrLimitsExceeded},
			},
		},
		{
			"excess_bytes",
			[]call{
				{"morgan", UsageStat{Period: "2025/1", NumBytes: 100, NumCalls: 1}, UploadLimits{MaxBytes: 190, MaxCalls: 10}, nil},
				{"morgan", UsageStat{Period: "2025/1", NumBytes: 100, NumCalls: 1}, UploadLimits{MaxBytes: 190, MaxCalls: 10}, ErrLimitsExceeded},
			},
		},
		{
			"excess_calls_switch",
			[]call{
				{"morgan", UsageStat{Period: "2025/1", NumBytes: 100, NumCalls: 1}, UploadLimits{MaxBytes: 1 << 30, MaxCalls: 1}, nil},
				{"morgan", UsageStat{Period: "2025/2", NumBytes: 100, NumCalls: 1}, UploadLimits{MaxBytes: 1 << 30, MaxCalls: 1}, nil},
				{"morgan", UsageStat{Period: "2025/2", NumBytes: 100, NumCalls: 1}, UploadLimits{MaxBytes: 1 << 30, MaxCalls: 1}, ErrLimitsExceeded},
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			db := newDB(t)
			for _, cal := range tc.calls {
				err := db.AddAmountsAndCompare(cal.name, cal.d, cal.lim)
				if cal.result == nil {
					assert.NoError(t, err)
				} else {
					assert.ErrorIs(t, err, cal.result)
				}
			}
		})
	}
}
