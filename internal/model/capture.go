package model

import "time"

// Capture represents one webcam image persisted on disk.
// StoragePath is the URL path relative to the storage root, e.g. /images/webcamupload/2024-01-02-03-04-05-006.png.
type Capture struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	CapturedAt  time.Time `json:"captured_at"`
}
