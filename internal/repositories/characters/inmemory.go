package characters

import (
	"context"
	"sync"
	"time"

	"github.com/emberfell/character-builder/internal/domain/character"
	berrors "github.com/emberfell/character-builder/internal/errors"
)

// InMemoryRepository is an in-memory implementation of the character repository
// Useful for testing and development
type InMemoryRepository struct {
	mu         sync.RWMutex
	characters map[string]*character.Character
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() Repository {
	return &InMemoryRepository{
		characters: make(map[string]*character.Character),
	}
}

// Create stores a new character
func (r *InMemoryRepository) Create(ctx context.Context, char *character.Character) error {
	if char == nil {
		return berrors.InvalidArgument("character cannot be nil")
	}
	if char.ID == "" {
		return berrors.InvalidArgument("character ID is required")
	}
	if char.OwnerID == "" {
		return berrors.InvalidArgument("character owner ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.characters[char.ID]; exists {
		return berrors.AlreadyExistsf("character with ID '%s' already exists", char.ID).
			WithMeta("character_id", char.ID)
	}

	// Store a copy to avoid external modifications
	charCopy := *char
	now := time.Now().UTC()
	if charCopy.CreatedAt.IsZero() {
		charCopy.CreatedAt = now
	}
	charCopy.UpdatedAt = now
	r.characters[char.ID] = &charCopy

	return nil
}

// Get retrieves a character by ID
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*character.Character, error) {
	if id == "" {
		return nil, berrors.InvalidArgument("character ID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	char, exists := r.characters[id]
	if !exists {
		return nil, berrors.NotFoundf("character with ID '%s' not found", id).
			WithMeta("character_id", id)
	}

	// Return a copy to avoid external modifications
	charCopy := *char
	return &charCopy, nil
}

// GetByOwner retrieves all characters for a specific owner
func (r *InMemoryRepository) GetByOwner(ctx context.Context, ownerID string) ([]*character.Character, error) {
	if ownerID == "" {
		return nil, berrors.InvalidArgument("owner ID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*character.Character, 0)
	for _, char := range r.characters {
		if char.OwnerID == ownerID {
			charCopy := *char
			result = append(result, &charCopy)
		}
	}

	return result, nil
}

// Delete removes a character
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return berrors.InvalidArgument("character ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.characters[id]; !exists {
		return berrors.NotFoundf("character with ID '%s' not found", id).
			WithMeta("character_id", id)
	}
	delete(r.characters, id)

	return nil
}
