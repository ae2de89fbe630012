package domain

import "time"

// ImageRecord is the single source of truth for the latest state of one image.
// A record exists if and only if at least one generation has successfully
// completed for its ImageID; it is created and mutated only by the worker.
type ImageRecord struct {
	ImageID            string
	LatestVersion      int
	ConversationHandle string
	UpdatedAt          time.Time
}
