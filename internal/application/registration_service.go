package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
	repo "github.com/oksasatya/go-form-playground/internal/domain/repository"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
	"github.com/oksasatya/go-form-playground/pkg/mailer"
)

var ErrEmailTaken = errors.New("email already registered")

// UsersIndexMapping is the Elasticsearch mapping for registered users.
const UsersIndexMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "keyword"},
      "email":      {"type": "keyword"},
      "name":       {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "created_at": {"type": "date"}
    }
  }
}`

// Registrar persists an accepted registration.
type Registrar interface {
	Register(ctx context.Context, r entity.Registration) (*entity.User, error)
}

// JobPublisher enqueues background jobs.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// TakenMarker is told about addresses that have just been registered.
type TakenMarker interface {
	MarkTaken(ctx context.Context, email string) error
}

// RegistrationService stores accepted submissions. Everything beyond the
// repository is optional and skipped when nil.
type RegistrationService struct {
	Repo         repo.UserRepository
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
	Publisher    JobPublisher
	Availability TakenMarker
	// Hash defaults to bcrypt.
	Hash func(string) (string, error)
}

func NewRegistrationService(r repo.UserRepository, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string, pub JobPublisher, availability TakenMarker) *RegistrationService {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &RegistrationService{
		Repo:         r,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
		Publisher:    pub,
		Availability: availability,
	}
}

func (s *RegistrationService) Register(ctx context.Context, r entity.Registration) (*entity.User, error) {
	hash := s.Hash
	if hash == nil {
		hash = helpers.HashPassword
	}
	pw, err := hash(r.Password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Email:    form.NormalizeEmail(r.Email),
		Name:     form.TrimName(r.Name),
		Password: pw,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			s.markTaken(ctx, u.Email)
			return nil, ErrEmailTaken
		}
		s.Logger.WithError(err).WithField("email", u.Email).Error("create user failed")
		return nil, err
	}

	s.markTaken(ctx, u.Email)
	_ = s.indexUser(ctx, u)
	if s.Publisher != nil {
		job := mailer.NewWelcomeJob(u.Email, u.Name, u.CreatedAt, ClientIP(ctx))
		if err := s.Publisher.PublishJSON(ctx, job); err != nil {
			s.Logger.WithError(err).WithField("email", u.Email).Warn("enqueue welcome email failed")
		}
	}

	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user registered")
	return u, nil
}

func (s *RegistrationService) markTaken(ctx context.Context, email string) {
	if s.Availability == nil {
		return
	}
	if err := s.Availability.MarkTaken(ctx, email); err != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("availability cache update failed")
	}
}

func (s *RegistrationService) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}
