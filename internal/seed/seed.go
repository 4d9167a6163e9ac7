// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"chirper/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumMessages int
	ShouldClean bool
}

// Run populates the database with fake users, messages, follow edges and
// likes. Intended for development environments only.
func Run(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 25
	}
	if opts.NumMessages <= 0 {
		opts.NumMessages = opts.NumUsers * 8
	}

	if opts.ShouldClean {
		if err := clean(db); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
	}

	f := NewFactory(db)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("seeding user %d: %w", i, err)
		}
		users = append(users, user)
	}
	log.Printf("seeded %d users", len(users))

	for i := 0; i < opts.NumMessages; i++ {
		author := users[f.rand.Intn(len(users))]
		if _, err := f.CreateMessage(author); err != nil {
			return fmt.Errorf("seeding message %d: %w", i, err)
		}
	}
	log.Printf("seeded %d messages", opts.NumMessages)

	if err := f.CreateSocialGraph(users); err != nil {
		return fmt.Errorf("seeding social graph: %w", err)
	}

	return nil
}

func clean(db *gorm.DB) error {
	for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
		if err := db.Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser persists a fake user. Every seeded user shares the password
// "password" so developers can log in as anyone.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:       fmt.Sprintf("%s%d", gofakeit.Username(), f.rand.Intn(10000)),
		Email:          gofakeit.Email(),
		Password:       string(hashed),
		ImageURL:       fmt.Sprintf("https://picsum.photos/seed/%s/200/200", gofakeit.UUID()),
		HeaderImageURL: models.DefaultHeaderImageURL,
		Bio:            gofakeit.Sentence(8),
		Location:       fmt.Sprintf("%s, %s", gofakeit.City(), gofakeit.StateAbr()),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateMessage persists a fake message for the given author with a
// realistic created_at spread over the past 90 days.
func (f *Factory) CreateMessage(author *models.User, overrides ...func(*models.Message)) (*models.Message, error) {
	text := gofakeit.Sentence(6 + f.rand.Intn(10))
	if len(text) > models.MaxMessageLength {
		text = text[:models.MaxMessageLength]
	}

	message := &models.Message{
		UserID:    author.ID,
		Text:      text,
		CreatedAt: time.Now().Add(-time.Duration(f.rand.Intn(90*24)) * time.Hour),
	}
	for _, override := range overrides {
		override(message)
	}

	if err := f.db.Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// CreateSocialGraph wires follow edges and likes between the seeded users.
// Each user follows roughly a third of the others and likes a sample of
// messages they did not write.
func (f *Factory) CreateSocialGraph(users []*models.User) error {
	var messages []models.Message
	if err := f.db.Find(&messages).Error; err != nil {
		return err
	}

	for _, user := range users {
		for _, other := range users {
			if user.ID == other.ID || f.rand.Intn(3) != 0 {
				continue
			}
			follow := models.Follow{FollowerID: user.ID, FollowedID: other.ID}
			if err := f.db.Create(&follow).Error; err != nil {
				return err
			}
		}

		for _, message := range messages {
			if message.UserID == user.ID || f.rand.Intn(10) != 0 {
				continue
			}
			like := models.Like{UserID: user.ID, MessageID: message.ID}
			if err := f.db.Create(&like).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
