package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxContentLength is the maximum post length in code points.
const MaxContentLength = 280

// PostKind discriminates the post variants.
type PostKind string

const (
	KindOriginal PostKind = "original"
	KindRetweet  PostKind = "retweet"
	KindQuote    PostKind = "quote"
	KindReply    PostKind = "reply"
)

// FeedKinds are the kinds a timeline is built from.
var FeedKinds = []PostKind{KindOriginal, KindRetweet}

// Valid reports whether k is a known kind.
func (k PostKind) Valid() bool {
	switch k {
	case KindOriginal, KindRetweet, KindQuote, KindReply:
		return true
	}
	return false
}

// Post is the persisted shape of every post variant stored in MongoDB.
// LikeCount and RetweetCount mirror the sets for indexing only; they are rewritten
// from the sets on every write and on every read.
type Post struct {
	ID             string    `json:"id" bson:"_id"`
	AuthorID       string    `json:"author_id" bson:"author_id"` // identity provider UID
	Content        string    `json:"content" bson:"content"`
	Kind           PostKind  `json:"kind" bson:"kind"`
	OriginalPostID string    `json:"original_post_id,omitempty" bson:"original_post_id,omitempty"`
	ReplyToPostID  string    `json:"reply_to_post_id,omitempty" bson:"reply_to_post_id,omitempty"`
	QuotePostID    string    `json:"quote_post_id,omitempty" bson:"quote_post_id,omitempty"`
	MediaURLs      []string  `json:"media_urls,omitempty" bson:"media_urls,omitempty"`
	LikedBy        []string  `json:"liked_by" bson:"liked_by"`
	RetweetedBy    []string  `json:"retweeted_by" bson:"retweeted_by"`
	LikeCount      int       `json:"like_count" bson:"like_count"`
	RetweetCount   int       `json:"retweet_count" bson:"retweet_count"`
	ReplyCount     int       `json:"reply_count" bson:"reply_count"`
	ViewCount      int       `json:"view_count" bson:"view_count"`
	Version        int64     `json:"-" bson:"version"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// NewPostID returns a fresh identifier. ObjectID hex strings sort by creation second,
// which keeps the id tie-break close to insertion order.
func NewPostID() string {
	return primitive.NewObjectID().Hex()
}

func newPost(authorID string, kind PostKind) *Post {
	now := time.Now().UTC()
	return &Post{
		AuthorID:    authorID,
		Kind:        kind,
		LikedBy:     []string{},
		RetweetedBy: []string{},
		ViewCount:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewOriginalPost builds a validated original post.
func NewOriginalPost(authorID, content string, mediaURLs []string) (*Post, error) {
	p := newPost(authorID, KindOriginal)
	p.Content = strings.TrimSpace(content)
	p.MediaURLs = mediaURLs
	return p, p.Validate()
}

// NewRetweetPost builds the synthetic shell that materializes a retweet.
func NewRetweetPost(authorID, originalPostID string) (*Post, error) {
	p := newPost(authorID, KindRetweet)
	p.OriginalPostID = originalPostID
	return p, p.Validate()
}

// NewQuotePost builds a quote of another post.
func NewQuotePost(authorID, content, quotePostID string) (*Post, error) {
	p := newPost(authorID, KindQuote)
	p.Content = strings.TrimSpace(content)
	p.QuotePostID = quotePostID
	return p, p.Validate()
}

// NewReplyPost builds a reply to another post.
func NewReplyPost(authorID, content, replyToPostID string) (*Post, error) {
	p := newPost(authorID, KindReply)
	p.Content = strings.TrimSpace(content)
	p.ReplyToPostID = replyToPostID
	return p, p.Validate()
}

// Validate rejects records carrying fields that are not valid for their kind.
func (p *Post) Validate() error {
	if p.AuthorID == "" {
		return fmt.Errorf("%w: post has no author", apperrors.ErrInvalid)
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: unknown post kind %q", apperrors.ErrInvalid, p.Kind)
	}
	if p.Kind == KindRetweet {
		if p.Content != "" || len(p.MediaURLs) > 0 {
			return fmt.Errorf("%w: retweet cannot carry content", apperrors.ErrInvalid)
		}
		if p.OriginalPostID == "" {
			return fmt.Errorf("%w: retweet has no original post", apperrors.ErrInvalid)
		}
	} else {
		if p.OriginalPostID != "" {
			return fmt.Errorf("%w: only retweets reference an original post", apperrors.ErrInvalid)
		}
		n := utf8.RuneCountInString(p.Content)
		if n == 0 {
			return fmt.Errorf("%w: content is required", apperrors.ErrInvalid)
		}
		if n > MaxContentLength {
			return fmt.Errorf("%w: content exceeds %d characters", apperrors.ErrInvalid, MaxContentLength)
		}
	}
	if (p.ReplyToPostID != "") != (p.Kind == KindReply) {
		return fmt.Errorf("%w: reply reference does not match kind %q", apperrors.ErrInvalid, p.Kind)
	}
	if (p.QuotePostID != "") != (p.Kind == KindQuote) {
		return fmt.Errorf("%w: quote reference does not match kind %q", apperrors.ErrInvalid, p.Kind)
	}
	return nil
}

// Clone returns a deep copy so mutators never alias stored slices.
func (p *Post) Clone() *Post {
	c := *p
	c.LikedBy = append([]string{}, p.LikedBy...)
	c.RetweetedBy = append([]string{}, p.RetweetedBy...)
	if p.MediaURLs != nil {
		c.MediaURLs = append([]string{}, p.MediaURLs...)
	}
	return &c
}

// Reconcile dedupes the membership sets and rewrites the counts from them.
// It reports whether the stored state had drifted.
func (p *Post) Reconcile() bool {
	drifted := false
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	if p.RetweetedBy == nil {
		p.RetweetedBy = []string{}
	}
	if u := lo.Uniq(p.LikedBy); len(u) != len(p.LikedBy) {
		p.LikedBy, drifted = u, true
	}
	if u := lo.Uniq(p.RetweetedBy); len(u) != len(p.RetweetedBy) {
		p.RetweetedBy, drifted = u, true
	}
	if p.LikeCount != len(p.LikedBy) || p.RetweetCount != len(p.RetweetedBy) {
		drifted = true
	}
	p.LikeCount = len(p.LikedBy)
	p.RetweetCount = len(p.RetweetedBy)
	return drifted
}
