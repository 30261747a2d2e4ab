package receipting

// NextSequenceNumber returns the number for the next receipt of the day given
// how many receipts the owner already has under the same date key.
//
// The count must be read by the caller just before calling this; two callers
// reading the same count will get the same number, so persistence has to reject
// the loser (see ReceiptRepository.Create).
func NextSequenceNumber(countExistingForDateKey int64) int {
	if countExistingForDateKey < 0 {
		countExistingForDateKey = 0
	}
	return int(countExistingForDateKey) + 1
}
