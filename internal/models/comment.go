package models

// Comment attached to a live post
type Comment struct {
	CID        string   `json:"cid"`
	PostID     string   `json:"postId"`     // cid of the post it belongs to
	PostAuthor Identity `json:"postAuthor"` // author of that post
	Author     Identity `json:"author"`     // who submitted the comment
	CreatedAt  int64    `json:"createdAt"`
}
