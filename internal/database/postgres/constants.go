package postgres

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction  = "failed to begin transaction"
	ErrMsgFailedToCommitTransaction = "failed to commit transaction"
	ErrMsgFailedToLockAccount       = "failed to lock account"
)

// Error Messages - Session Operations
const (
	ErrMsgFailedToReadSession   = "failed to read session"
	ErrMsgFailedToWriteSession  = "failed to write session"
	ErrMsgFailedToCheckLedger   = "failed to check balance ledger"
	ErrMsgFailedToWriteLedger   = "failed to write balance ledger"
	ErrMsgFailedToUpdateBalance = "failed to update balance"
	ErrMsgInvalidStoredDecimal  = "invalid stored decimal"
)

// Error Messages - Account and Boost Operations
const (
	ErrMsgFailedToCreateAccount = "failed to create account"
	ErrMsgFailedToReadAccount   = "failed to read account"
	ErrMsgFailedToReadBoosts    = "failed to read boosts"
	ErrMsgFailedToUpsertBoost   = "failed to upsert boost"
	ErrMsgFailedToDeleteBoost   = "failed to delete boost"
)

// PostgreSQL Error Codes
const (
	// PgErrorCodeForeignKeyViolation is raised when a row references a missing account
	PgErrorCodeForeignKeyViolation = "23503"
)
