package store

import "github.com/ayafuji/melodine/internal/structures"

// Store is the durable local key-value and account storage. Values under
// SetState are JSON-serializable string blobs; there are no transactions and
// no concurrent-writer protection beyond a single process.
type Store interface {
	SetState(key, value string) error
	GetState(key string) (string, bool)
	SaveUser(user structures.User) error
	GetUserByName(username string) (*structures.User, bool)
	Close() error
}
