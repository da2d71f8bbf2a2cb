package checkpoint

// Store defines the interface for checkpoint storage.
type Store interface {
	// Save stores cp under cp.Name, replacing any previous checkpoint with
	// the same name.
	Save(cp *Checkpoint) error

	// Load retrieves a checkpoint by name.
	// Returns ErrNotFound if it does not exist.
	Load(name string) (*Checkpoint, error)

	// Delete removes a checkpoint. Deleting a missing name is not an error.
	Delete(name string) error

	// List returns the stored names in sorted order.
	List() ([]string, error)

	// Count returns the number of stored checkpoints.
	Count() uint64

	// Close closes the store.
	Close() error
}
