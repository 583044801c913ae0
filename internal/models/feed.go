package models

import "time"

// PostView is a post annotated for a specific viewer.
type PostView struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Author       Profile   `json:"author"`
	MediaURLs    []string  `json:"media_urls"`
	LikeCount    int       `json:"like_count"`
	RetweetCount int       `json:"retweet_count"`
	ReplyCount   int       `json:"reply_count"`
	ViewCount    int       `json:"view_count"`
	IsLiked      bool      `json:"is_liked"`
	IsRetweeted  bool      `json:"is_retweeted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewPostView annotates p for viewerID. Counts come from the sets, never the stored fields.
func NewPostView(p *Post, author Profile, viewerID string) PostView {
	media := p.MediaURLs
	if media == nil {
		media = []string{}
	}
	return PostView{
		ID:           p.ID,
		Content:      p.Content,
		Author:       author,
		MediaURLs:    media,
		LikeCount:    p.MemberCount(InteractionLike),
		RetweetCount: p.MemberCount(InteractionRetweet),
		ReplyCount:   p.ReplyCount,
		ViewCount:    p.ViewCount,
		IsLiked:      p.IsLikedBy(viewerID),
		IsRetweeted:  p.IsRetweetedBy(viewerID),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// FeedItem is one display record of a feed. Original items inline the post view;
// retweet items carry the retweeter and nest the resolved original.
type FeedItem struct {
	ID   string   `json:"id"`
	Type PostKind `json:"type"`
	*PostView
	Retweeter     *Profile   `json:"retweeter,omitempty"`
	RetweetedAt   *time.Time `json:"retweeted_at,omitempty"`
	OriginalTweet *PostView  `json:"original_tweet,omitempty"`
}

// Feed is an assembled page.
type Feed struct {
	Posts         []FeedItem `json:"posts"`
	HasMore       bool       `json:"has_more"`
	TotalReturned int        `json:"total_returned"`
}

// CreatePostRequest defines the request body for creating a new post.
// ReplyTo and QuoteOf are mutually exclusive.
type CreatePostRequest struct {
	Content   string   `json:"content" validate:"required,min=1,max=280"`
	MediaURLs []string `json:"media_urls,omitempty" validate:"omitempty,max=4,dive,url"`
	ReplyTo   string   `json:"reply_to,omitempty" validate:"omitempty,len=24,hexadecimal,excluded_with=QuoteOf"`
	QuoteOf   string   `json:"quote_of,omitempty" validate:"omitempty,len=24,hexadecimal"`
}

// SetLikedRequest defines the request body for the idempotent like endpoint
type SetLikedRequest struct {
	Liked *bool `json:"liked" validate:"required"`
}

// SetRetweetedRequest defines the request body for the idempotent retweet endpoint
type SetRetweetedRequest struct {
	Retweeted *bool `json:"retweeted" validate:"required"`
}
