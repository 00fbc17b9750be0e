package domain

import "time"

// Post - содержимое поста, как его прислал клиент, плюс время создания.
type Post struct {
	Title     string    `json:"title" bson:"title" gorm:"type:varchar(255);not null"`
	Content   string    `json:"content" bson:"content" gorm:"type:text;not null"`
	Author    string    `json:"author" bson:"author" gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" gorm:"not null"`
}

// NewPost создает пост; CreatedAt фиксируется в момент конструирования.
func NewPost(title, content, author string, now time.Time) Post {
	return Post{
		Title:     title,
		Content:   content,
		Author:    author,
		CreatedAt: now.UTC(),
	}
}

// PostRecord - сохраненный документ: числовой id и сам пост.
type PostRecord struct {
	ID   int64 `json:"id" bson:"id" gorm:"primaryKey;autoIncrement:false"`
	Post Post  `json:"post" bson:"post" gorm:"embedded"`
}

func (PostRecord) TableName() string { return "posts" }
