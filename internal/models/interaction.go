package models

import "github.com/samber/lo"

// InteractionKind names a membership set on a post.
type InteractionKind string

const (
	InteractionLike    InteractionKind = "like"
	InteractionRetweet InteractionKind = "retweet"
)

func (p *Post) members(kind InteractionKind) *[]string {
	if kind == InteractionRetweet {
		return &p.RetweetedBy
	}
	return &p.LikedBy
}

// HasMember reports whether userID is in the kind's set. Empty ids are never members,
// so anonymous viewers always see false.
func (p *Post) HasMember(kind InteractionKind, userID string) bool {
	if userID == "" {
		return false
	}
	return lo.Contains(*p.members(kind), userID)
}

// SetMember adds or removes userID and recomputes the counts from the sets.
// It reports whether membership changed.
func (p *Post) SetMember(kind InteractionKind, userID string, member bool) bool {
	set := p.members(kind)
	had := lo.Contains(*set, userID)
	switch {
	case member && !had:
		*set = append(*set, userID)
	case !member && had:
		*set = lo.Without(*set, userID)
	}
	p.Reconcile()
	return had != member
}

// MemberCount is the cardinality of the kind's set.
func (p *Post) MemberCount(kind InteractionKind) int {
	return len(*p.members(kind))
}

func (p *Post) IsLikedBy(userID string) bool { return p.HasMember(InteractionLike, userID) }
func (p *Post) IsRetweetedBy(userID string) bool { return p.HasMember(InteractionRetweet, userID) }

// LikeResult is the outcome of a like toggle or set.
type LikeResult struct {
	PostID    string `json:"post_id"`
	Liked     bool   `json:"is_liked"`
	LikeCount int    `json:"like_count"`
}

// RetweetResult is the outcome of a retweet toggle or set.
type RetweetResult struct {
	PostID       string `json:"post_id"`
	Retweeted    bool   `json:"is_retweeted"`
	RetweetCount int    `json:"retweet_count"`
}

// InteractionSnapshot exposes the raw ledger of a post for inspection.
type InteractionSnapshot struct {
	PostID          string   `json:"post_id"`
	AuthorID        string   `json:"author_id"`
	LikedBy         []string `json:"liked_by"`
	RetweetedBy     []string `json:"retweeted_by"`
	LikeCount       int      `json:"like_count"`
	RetweetCount    int      `json:"retweet_count"`
	ViewerID        string   `json:"viewer_id"`
	ViewerLiked     bool     `json:"viewer_liked"`
	ViewerRetweeted bool     `json:"viewer_retweeted"`
}
