package storage

import (
	"bytes"
	"errors"
	"slices"

	"github.com/go-redis/redis"
	"github.com/nspcc-dev/mptrie/pkg/core/storage/dbconfig"
)

// RedisStore holds the client and maybe later some more metadata.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns an new initialized - ready to use RedisStore object.
func NewRedisStore(cfg dbconfig.RedisDBOptions) (*RedisStore, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := c.Ping().Result(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &RedisStore{client: c}, nil
}

// Get implements the Store interface.
func (s *RedisStore) Get(k []byte) ([]byte, error) {
	val, err := s.client.Get(string(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

// Put implements the Store interface.
func (s *RedisStore) Put(k, v []byte) error {
	return s.client.Set(string(k), v, 0).Err()
}

// PutChangeSet implements the Store interface. Changes are sent in one
// MULTI/EXEC transaction.
func (s *RedisStore) PutChangeSet(puts map[string][]byte) error {
	if len(puts) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for k, v := range puts {
		if v != nil {
			pipe.Set(k, v, 0)
		} else {
			pipe.Del(k)
		}
	}
	_, err := pipe.Exec()
	return err
}

// Seek implements the Store interface. Keys are binary, so they're filtered
// on the client side instead of MATCH patterns.
func (s *RedisStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	rang := seekRangeToPrefixes(rng)

	var keys []string
	iter := s.client.Scan(0, "", 0).Iterator()
	for iter.Next() {
		k := []byte(iter.Val())
		if bytes.Compare(k, rang.Start) >= 0 && (len(rang.Limit) == 0 || bytes.Compare(k, rang.Limit) < 0) {
			keys = append(keys, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		panic(err)
	}
	slices.Sort(keys)
	if rng.Backwards {
		slices.Reverse(keys)
	}
	for _, k := range keys {
		v, err := s.client.Get(k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // Deleted concurrently.
		}
		if err != nil {
			panic(err)
		}
		if !f([]byte(k), v) {
			break
		}
	}
}

// Close implements the Store interface.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
