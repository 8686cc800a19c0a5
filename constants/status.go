package constants

// DocumentStatus is the canonical processing status for rows in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    DocumentStatus = "pending"    // uploaded, waiting for a worker
	StatusProcessing DocumentStatus = "processing" // pipeline running
	StatusCompleted  DocumentStatus = "completed"  // fields extracted
	StatusFailed     DocumentStatus = "failed"     // terminal failure; reprocess is the retry
)

// ErrNoText is the user-visible message stored on a document when OCR
// produced no text at all.
const ErrNoText = "No text could be extracted from the image"
