package models

import "time"

// Post is a single authored text entry.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	AuthorID  uint      `json:"author_id" gorm:"index;not null"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	GroupID   *uint     `json:"group_id,omitempty" gorm:"index"`
	Group     *Group    `json:"group,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL"`
	Image     string    `json:"image,omitempty"` // name inside the media store, empty if none
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	Comments  []Comment `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// PostRequest is the body of the create and edit forms. Group holds the
// selected group id or is empty for no group.
type PostRequest struct {
	Text  string `form:"text" validate:"required"`
	Group string `form:"group" validate:"omitempty,number"`
}

// PostFilter narrows a post listing. Nil fields are not applied.
type PostFilter struct {
	AuthorID   *uint
	GroupID    *uint
	FollowerID *uint // posts by authors this user follows
}
