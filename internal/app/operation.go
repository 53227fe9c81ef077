package app

// EditOperation tracks a CLI operation that may mutate the remote store or
// the local drafts database. Operations are created in memory with ID=0.
// Only mutating commands persist them (giving them an auto-increment ID
// from the database).
type EditOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewEditOperation creates a new in-memory edit operation.
func NewEditOperation(operation, parameters string) *EditOperation {
	return &EditOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *EditOperation) Persisted() bool {
	return op.ID != 0
}
