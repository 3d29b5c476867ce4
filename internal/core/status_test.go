package core

import "testing"

func newAsset(st AssetStatus) *Asset {
	return &Asset{Status: st}
}

func TestDeriveStatus(t *testing.T) {
	testCases := []struct {
		name   string
		assets []*Asset
		want   BatchStatus
	}{
		{
			name:   "all completed",
			assets: []*Asset{newAsset(AssetStatusCompleted), newAsset(AssetStatusCompleted)},
			want:   BatchStatusCompleted,
		},
		{
			name:   "all failed",
			assets: []*Asset{newAsset(AssetStatusFailed), newAsset(AssetStatusFailed)},
			want:   BatchStatusFailed,
		},
		{
			name:   "all pending",
			assets: []*Asset{newAsset(AssetStatusPending), newAsset(AssetStatusPending)},
			want:   BatchStatusPending,
		},
		{
			name:   "completed and failed",
			assets: []*Asset{newAsset(AssetStatusFailed), newAsset(AssetStatusCompleted)},
			want:   BatchStatusPartiallyCompleted,
		},
		{
			name:   "pending and finished",
			assets: []*Asset{newAsset(AssetStatusPending), newAsset(AssetStatusCompleted)},
			want:   BatchStatusInProgress,
		},
		{
			name:   "no assets",
			assets: nil,
			want:   BatchStatusCompleted,
		},
		{
			name:   "downloading",
			assets: []*Asset{newAsset(AssetStatusPending), newAsset(AssetStatusDownloading)},
			want:   BatchStatusInProgress,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := deriveStatus(tc.assets)
			if got != tc.want {
				t.Fatalf(
					"deriveStatus: got %v, want %v",
					got, tc.want,
				)
			}
		})
	}
}
