package models

// Like is unique per (PostID, Liker).
type Like struct {
	PostID     string   `json:"postId"`
	PostAuthor Identity `json:"postAuthor"`
	Liker      Identity `json:"liker"`
}
