package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/ugorji/go/codec"
)

const (
	federationPrefix = "federation"
	lastHandleKey    = "meta_lastFederation"
)

// BadgerStore persists the federation catalog in a badger database.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens, or creates, the database in path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{
		db:   db,
		path: path,
	}, nil
}

//==============================================================================
//Keys

func federationKey(name string) []byte {
	return []byte(fmt.Sprintf("%s_%s", federationPrefix, name))
}

//==============================================================================
//Implement the Store interface

// PutFederation ...
func (s *BadgerStore) PutFederation(rec *FederationRecord) error {
	val, err := encode(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(federationKey(rec.Name), val); err != nil {
			return err
		}

		last, err := getUint64(txn, []byte(lastHandleKey))
		if err != nil {
			return err
		}
		if uint64(rec.Handle) <= last {
			return nil
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(rec.Handle))
		return txn.Set([]byte(lastHandleKey), buf)
	})
}

// GetFederation ...
func (s *BadgerStore) GetFederation(name string) (*FederationRecord, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(federationKey(name))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if isDBKeyNotFound(err) {
			return nil, cm.NewStoreErr("Federation", cm.KeyNotFound, name)
		}
		return nil, err
	}
	return decode(val)
}

// DeleteFederation ...
func (s *BadgerStore) DeleteFederation(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(federationKey(name)); err != nil {
			if isDBKeyNotFound(err) {
				return cm.NewStoreErr("Federation", cm.KeyNotFound, name)
			}
			return err
		}
		return txn.Delete(federationKey(name))
	})
}

// Federations returns all records ordered by name.
func (s *BadgerStore) Federations() ([]*FederationRecord, error) {
	res := []*FederationRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(federationPrefix + "_")

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decode(val)
			if err != nil {
				return err
			}
			res = append(res, rec)
		}
		return nil
	})
	return res, err
}

// LastFederationHandle returns the greatest federation handle ever stored,
// including handles of destroyed federations.
func (s *BadgerStore) LastFederationHandle() (handle.Federation, error) {
	var last uint64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		last, err = getUint64(txn, []byte(lastHandleKey))
		return err
	})
	return handle.Federation(last), err
}

// StorePath ...
func (s *BadgerStore) StorePath() string {
	return s.path
}

// Close ...
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//DB Methods

func getUint64(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if err != nil {
		if isDBKeyNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt value for %s", key)
	}
	return binary.BigEndian.Uint64(val), nil
}

func encode(rec *FederationRecord) ([]byte, error) {
	var b bytes.Buffer
	enc := codec.NewEncoder(&b, &codec.MsgpackHandle{})
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decode(data []byte) (*FederationRecord, error) {
	rec := new(FederationRecord)
	dec := codec.NewDecoder(bytes.NewReader(data), &codec.MsgpackHandle{})
	if err := dec.Decode(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}
