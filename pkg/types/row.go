package types

// Row is one indexed record: the schema column values for a single
// parameter block plus the owning dataset's path. Rows are owned by the
// index store and immutable once written.
type Row struct {
	// ID is the UUID primary key assigned when the row is appended.
	ID string

	// Values holds one value per library schema column, in schema order.
	// Columns absent from the source block are null.
	Values []Value

	// DatasetPath is the filesystem path of the dataset directory the
	// block was read from (post-rename when directory hashing is on).
	DatasetPath string

	// Fingerprint is the 64-bit murmur3 hash of the raw block text,
	// used for duplicate detection and verbose reporting.
	Fingerprint uint64

	// Raw is the snappy-compressed source text of the parameter block,
	// kept for provenance.
	Raw []byte
}
