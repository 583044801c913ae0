// Package seed fills an empty deployment with sample users and posts.
package seed

import (
	"context"
	"fmt"

	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/repositories"
	"github.com/nestsocial/nest/backend/internal/services"
	log "github.com/sirupsen/logrus"
)

// Truncater is implemented by stores that can drop all of their records.
type Truncater interface {
	DeleteAll(ctx context.Context) error
}

// PostStore is a post repository that can also be cleared.
type PostStore interface {
	repositories.PostRepository
	Truncater
}

// Result lists what Run created.
type Result struct {
	Users []models.User
	Posts []*models.Post
}

var sampleUsers = []models.User{
	{ExternalID: "seed-testuser", Username: "testuser", DisplayName: "Test User", Email: "test@nest.com", IsVerified: true},
	{ExternalID: "seed-johndoe", Username: "johndoe", DisplayName: "John Doe", Email: "john@nest.com"},
	{ExternalID: "seed-jane", Username: "jane_smith", DisplayName: "Jane Smith", Email: "jane@nest.com", IsVerified: true},
}

var samplePosts = []struct {
	author  int
	content string
}{
	{0, "Welcome to NEST! This is the future of social media with a sleek black and silver design. Excited to be here!"},
	{1, "Just finished building an amazing feature for NEST. The real-time updates are incredibly smooth! #WebDev #NEST"},
	{2, "The design system for NEST is absolutely stunning. Black and silver theme hits different. Props to the design team!"},
	{0, "Pro tip: The real magic happens when you combine great technology with beautiful design. That's what NEST is all about!"},
}

// Run clears posts and users, then recreates the sample data. Interactions go
// through the ledger so every count matches its membership set.
func Run(ctx context.Context, posts PostStore, users repositories.UserRepository, postService *services.PostService, ledger *services.InteractionLedger) (*Result, error) {
	for _, t := range []Truncater{posts, users} {
		if err := t.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}
	log.Info("Cleared existing data")

	res := &Result{}
	for _, u := range sampleUsers {
		u := u
		if err := users.UpsertUser(ctx, &u); err != nil {
			return nil, fmt.Errorf("create user %s: %w", u.Username, err)
		}
		res.Users = append(res.Users, u)
	}
	log.WithField("count", len(res.Users)).Info("Created sample users")

	for _, sp := range samplePosts {
		p, err := postService.Create(ctx, res.Users[sp.author].ExternalID, models.CreatePostRequest{Content: sp.content})
		if err != nil {
			return nil, fmt.Errorf("create sample post: %w", err)
		}
		res.Posts = append(res.Posts, p)
	}
	log.WithField("count", len(res.Posts)).Info("Created sample posts")

	// every user likes every post by someone else; jane retweets the welcome post
	for _, p := range res.Posts {
		for _, u := range res.Users {
			if u.ExternalID == p.AuthorID {
				continue
			}
			if _, err := ledger.SetLiked(ctx, p.ID, u.ExternalID, true); err != nil {
				return nil, fmt.Errorf("like sample post: %w", err)
			}
		}
	}
	if _, err := ledger.SetRetweeted(ctx, res.Posts[0].ID, res.Users[2].ExternalID, true); err != nil {
		return nil, fmt.Errorf("retweet sample post: %w", err)
	}
	log.Info("Sample data created successfully")
	return res, nil
}
