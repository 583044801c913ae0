package models

// Variant is the typed view of a Post: exactly one of Original, Retweet, Quote or Reply.
type Variant interface {
	variant()
}

type Original struct {
	Content   string
	MediaURLs []string
}

type Retweet struct {
	OriginalPostID string
}

type Quote struct {
	Content     string
	QuotePostID string
}

type Reply struct {
	Content       string
	ReplyToPostID string
}

func (Original) variant() {}
func (Retweet) variant() {}
func (Quote) variant() {}
func (Reply) variant() {}

// Variant validates the record and returns the case it holds.
func (p *Post) Variant() (Variant, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch p.Kind {
	case KindRetweet:
		return Retweet{OriginalPostID: p.OriginalPostID}, nil
	case KindQuote:
		return Quote{Content: p.Content, QuotePostID: p.QuotePostID}, nil
	case KindReply:
		return Reply{Content: p.Content, ReplyToPostID: p.ReplyToPostID}, nil
	default:
		return Original{Content: p.Content, MediaURLs: p.MediaURLs}, nil
	}
}
