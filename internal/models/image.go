package models

import "time"

// Image is a stored capture discovered on disk by filename.
type Image struct {
	Filename   string    `json:"filename"`
	Channel    string    `json:"channel"`
	CapturedAt time.Time `json:"captured_at"`
	Size       int64     `json:"size"`
}
