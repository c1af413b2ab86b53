package store

import "context"

// Store keeps run artifacts. A run writes its artifacts under one prefix, the
// key being the artifact name.
type Store interface {
	/**
	 * Get returns nil without error when prefix + key does not exist
	 */
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key
	 * remove an unexists prefix + key would NOT return error
	 */
	Remove(ctx context.Context, prefix, key string) error

	/**
	 * List calls iterator with the keys under prefix in lexical order until
	 * iterator returns false
	 */
	List(ctx context.Context, prefix string, iterator func(key string) bool) error
}
