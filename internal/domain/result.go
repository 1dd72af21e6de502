package domain

// ErrMsgNoConnection is reported when no store connection could be obtained.
const ErrMsgNoConnection = "No connection."

// InsertBatchResult summarizes one bulk insert. Inserted counts rows sent to
// the store, ActualInserted sums the row counts the store reported back.
type InsertBatchResult struct {
	OK             bool           `json:"ok"`
	Error          string         `json:"error,omitempty"`
	Inserted       int            `json:"inserted"`
	ActualInserted *int64         `json:"actual_inserted,omitempty"`
	AllInserted    *bool          `json:"all_inserted,omitempty"`
	Skipped        int            `json:"skipped"`
	Errors         []RowRejection `json:"errors"`
}

// NoConnectionResult reports that the insert step was skipped entirely.
func NoConnectionResult(rejections []RowRejection) InsertBatchResult {
	return FailedResult(ErrMsgNoConnection, rejections)
}

// FailedResult reports a batch-level failure carrying the pre-existing rejections.
func FailedResult(msg string, rejections []RowRejection) InsertBatchResult {
	return InsertBatchResult{
		OK:      false,
		Error:   msg,
		Skipped: len(rejections),
		Errors:  nonNil(rejections),
	}
}

// NoRowsResult reports a batch in which every payload was rejected. An empty
// rejection list gets a single placeholder entry so Errors is never empty.
func NoRowsResult(rejections []RowRejection) InsertBatchResult {
	errs := rejections
	if len(errs) == 0 {
		errs = []RowRejection{{Index: -1, Payload: RawText(""), Reason: ReasonNoValidRow}}
	}
	return InsertBatchResult{
		OK:      false,
		Skipped: len(rejections),
		Errors:  errs,
	}
}

// InsertedResult reports a completed batch write.
func InsertedResult(inserted int, actual int64, rejections []RowRejection) InsertBatchResult {
	all := int64(inserted) == actual
	return InsertBatchResult{
		OK:             true,
		Inserted:       inserted,
		ActualInserted: &actual,
		AllInserted:    &all,
		Skipped:        len(rejections),
		Errors:         nonNil(rejections),
	}
}

func nonNil(rejections []RowRejection) []RowRejection {
	if rejections == nil {
		return []RowRejection{}
	}
	return rejections
}
