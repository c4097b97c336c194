package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/internal/core/ports"
	"trade-settlement-engine/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Minimum length for a search pattern. Shorter patterns match too much.
const minSearchLen = 3

var searchableFields = map[string]bool{
	"name":    true,
	"email":   true,
	"address": true,
}

// ClientServiceImpl implements ports.ClientService.
type ClientServiceImpl struct {
	clientRepo ports.ClientRepository
	log        zerolog.Logger
}

// NewClientService creates a new ClientServiceImpl.
func NewClientService(clientRepo ports.ClientRepository, log zerolog.Logger) *ClientServiceImpl {
	return &ClientServiceImpl{clientRepo: clientRepo, log: log}
}

// Create registers a new client. Clients start active with a zero profit
// balance.
func (s *ClientServiceImpl) Create(ctx context.Context, req ports.ClientCreateRequest) (*domain.Client, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Pre-check for a friendlier error; the unique constraint still backs
	// this up under concurrency.
	existing, err := s.clientRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateEmail(email)
	}

	now := time.Now().UTC()
	client := &domain.Client{
		Name:      req.Name,
		Email:     email,
		Address:   req.Address,
		Profit:    decimal.Zero,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrDuplicateEmail(email)
		}
		return nil, apperror.InternalError(fmt.Errorf("create client: %w", err))
	}

	s.log.Info().Int64("client_id", client.ID).Str("email", email).Msg("client created")
	return client, nil
}

// Update applies a partial update to a client's administrative fields.
// The write is conditioned on the version read here; a concurrent settlement
// can make it fail, in which case the caller should resubmit.
func (s *ClientServiceImpl) Update(ctx context.Context, id int64, req ports.ClientUpdateRequest) (*domain.Client, error) {
	if req.IsEmpty() {
		return nil, apperror.ErrAttributeMismatch("no updatable fields provided")
	}

	client, err := s.getClient(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != client.Email {
			other, err := s.clientRepo.GetByEmail(ctx, email)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
			}
			if other != nil {
				return nil, apperror.ErrDuplicateEmail(email)
			}
			client.Email = email
		}
	}
	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Address != nil {
		client.Address = *req.Address
	}

	now := time.Now().UTC()
	if req.Active != nil {
		client.SetActive(*req.Active, now)
	}
	client.UpdatedAt = now

	if err := s.clientRepo.Update(ctx, client); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, apperror.ErrConcurrencyConflict(1)
		}
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrDuplicateEmail(client.Email)
		}
		return nil, apperror.InternalError(fmt.Errorf("update client: %w", err))
	}

	s.log.Info().Int64("client_id", id).Bool("active", client.Active).Msg("client updated")
	return client, nil
}

// GetByID returns a client by ID.
func (s *ClientServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	return s.getClient(ctx, id)
}

// List returns all clients.
func (s *ClientServiceImpl) List(ctx context.Context) ([]domain.Client, error) {
	clients, err := s.clientRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list clients: %w", err))
	}
	return clients, nil
}

// Search matches clients whose field contains text, case-insensitively.
func (s *ClientServiceImpl) Search(ctx context.Context, field, text string) ([]domain.Client, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if !searchableFields[field] {
		return nil, apperror.ErrAttributeMismatch(fmt.Sprintf("field %q is not searchable", field))
	}
	text = strings.TrimSpace(text)
	if len(text) < minSearchLen {
		return nil, apperror.ErrAttributeMismatch(fmt.Sprintf("search text must be at least %d characters", minSearchLen))
	}

	clients, err := s.clientRepo.Search(ctx, field, text)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("search clients: %w", err))
	}
	return clients, nil
}

// GetProfit returns a client's current profit balance.
func (s *ClientServiceImpl) GetProfit(ctx context.Context, id int64) (decimal.Decimal, error) {
	client, err := s.getClient(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return client.Profit, nil
}

// SearchProfitRange returns clients whose profit lies within [min, max].
func (s *ClientServiceImpl) SearchProfitRange(ctx context.Context, min, max decimal.Decimal) ([]domain.Client, error) {
	if max.LessThan(min) {
		return nil, apperror.ErrAttributeMismatch(fmt.Sprintf("max %s is below min %s", max, min))
	}

	clients, err := s.clientRepo.SearchProfitRange(ctx, min, max)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("search profit range: %w", err))
	}
	return clients, nil
}

func (s *ClientServiceImpl) getClient(ctx context.Context, id int64) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get client %d: %w", id, err))
	}
	if client == nil {
		return nil, apperror.ErrClientNotFound(id)
	}
	return client, nil
}
