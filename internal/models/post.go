package models

// Identity is an opaque, already authenticated participant identifier.
type Identity string

// Post is a published piece of content, keyed by its content identifier.
type Post struct {
	CID       string   `json:"cid"`
	Author    Identity `json:"author"`
	CreatedAt int64    `json:"createdAt"` // supplied by the caller, accepted as-is
}
