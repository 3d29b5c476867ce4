package core

// BatchStatus is a state of a Batch.
type BatchStatus string

type AssetStatus string

const (
	BatchStatusPending    BatchStatus = "BATCH_PENDING"
	BatchStatusInProgress BatchStatus = "BATCH_IN_PROGRESS"
	BatchStatusFailed     BatchStatus = "BATCH_FAILED"
	// PartiallyCompleted is used when some assets finished, but some others failed.
	BatchStatusPartiallyCompleted BatchStatus = "BATCH_PARTIALLY_COMPLETED"
	BatchStatusCompleted          BatchStatus = "BATCH_COMPLETED"

	AssetStatusPending     AssetStatus = "ASSET_PENDING" // Not started
	AssetStatusDownloading AssetStatus = "ASSET_DOWNLOADING"
	AssetStatusCompleted   AssetStatus = "ASSET_COMPLETED"
	AssetStatusFailed      AssetStatus = "ASSET_FAILED"
)

// deriveStatus folds the asset statuses into one batch status. An empty
// batch counts as completed. Any downloading asset, or a mix of pending
// and finished assets, means the batch is still in progress.
func deriveStatus(assets []*Asset) BatchStatus {
	if len(assets) == 0 {
		return BatchStatusCompleted
	}

	var completed, failed, downloading int
	for _, a := range assets {
		switch a.Status {
		case AssetStatusCompleted:
			completed++
		case AssetStatusFailed:
			failed++
		case AssetStatusDownloading:
			downloading++
		}
	}

	finished := completed + failed
	switch {
	case downloading > 0:
		return BatchStatusInProgress
	case finished == 0:
		return BatchStatusPending
	case finished < len(assets):
		return BatchStatusInProgress
	case failed == 0:
		return BatchStatusCompleted
	case completed == 0:
		return BatchStatusFailed
	default:
		return BatchStatusPartiallyCompleted
	}
}
