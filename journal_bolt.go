package chronicle

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"go.etcd.io/bbolt"
)

// BoltJournal keeps each stream in a nested bbolt bucket under a single
// root bucket. Every multi-stream append runs inside one Update
// transaction, which makes commits all-or-nothing across aggregates
type BoltJournal struct {
	db *bbolt.DB
}

var boltEventsBucket = []byte("events")

// NewBoltJournal opens (or creates) the database file at path
func NewBoltJournal(path string) (*BoltJournal, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltEventsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltJournal{db: db}, nil
}

func (j *BoltJournal) Append(_ context.Context, batches []Batch) error {
	if len(batches) == 0 {
		return nil
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(boltEventsBucket)
		for _, b := range batches {
			stream, err := root.CreateBucketIfNotExists([]byte(b.Key))
			if err != nil {
				return err
			}
			for _, ev := range b.Events {
				data, err := json.Marshal(ev)
				if err != nil {
					return err
				}
				pos, err := stream.NextSequence()
				if err != nil {
					return err
				}
				var key [8]byte
				binary.BigEndian.PutUint64(key[:], pos)
				if err := stream.Put(key[:], data); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (j *BoltJournal) Load(_ context.Context, key string) ([]*Event, error) {
	var events []*Event
	err := j.db.View(func(tx *bbolt.Tx) error {
		stream := tx.Bucket(boltEventsBucket).Bucket([]byte(key))
		if stream == nil {
			return nil
		}
		// Keys are big-endian positions; cursor order is append order
		return stream.ForEach(func(_, v []byte) error {
			ev := &Event{}
			if err := json.Unmarshal(v, ev); err != nil {
				return err
			}
			events = append(events, ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (j *BoltJournal) Close() error {
	return j.db.Close()
}
