package repositories

import "gorm.io/gorm"

// TxManager runs a function against repositories bound to a single database
// transaction. If the function returns an error the transaction is rolled
// back, otherwise it is committed.
type TxManager interface {
	Do(fn func(users UserRepository, authUsers AuthUserRepository) error) error
}

// GORMTxManager is a GORM implementation of TxManager.
type GORMTxManager struct {
	db *gorm.DB
}

// NewGORMTxManager creates a new instance of GORMTxManager.
func NewGORMTxManager(db *gorm.DB) *GORMTxManager {
	return &GORMTxManager{
		db: db,
	}
}

// Do executes fn inside a transaction, handing it repositories that share the
// transaction handle.
func (m *GORMTxManager) Do(fn func(users UserRepository, authUsers AuthUserRepository) error) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMUserRepository(tx), NewGORMAuthUserRepository(tx))
	})
}
