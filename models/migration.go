package models

import (
	"gorm.io/gorm"
)

// Migrate creates/updates the tables the verification core reads, including the
// (loan_id, transaction_id) unique index that keeps synced transactions distinct.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Loan{},
		&BankTransaction{},
	)
}
