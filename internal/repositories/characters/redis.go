package characters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/shared"
	berrors "github.com/emberfell/character-builder/internal/errors"
)

// CharacterData represents the serialized form of a character in Redis
type CharacterData struct {
	ID            string                 `json:"id"`
	OwnerID       string                 `json:"owner_id"`
	Name          string                 `json:"name"`
	Ancestry      string                 `json:"ancestry"`
	Class         string                 `json:"class"`
	StartingPack  string                 `json:"starting_pack,omitempty"`
	Stats         map[shared.StatKey]int `json:"stats"`
	Skills        []shared.SkillKey      `json:"skills"`
	Spells        []string               `json:"spells"`
	Perks         []string               `json:"perks"`
	Gear          []string               `json:"gear"`
	GearCostSpent float64                `json:"gear_cost_spent"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// redisRepo implements the Repository interface using Redis
type redisRepo struct {
	client redis.UniversalClient
}

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client redis.UniversalClient
}

// NewRedisRepository creates a new Redis-backed character repository
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg == nil {
		panic("RedisRepoConfig cannot be nil")
	}
	if cfg.Client == nil {
		panic("Redis client cannot be nil")
	}

	return &redisRepo{
		client: cfg.Client,
	}
}

// key generates the Redis key for a character
func (r *redisRepo) key(id string) string {
	return fmt.Sprintf("character:%s", id)
}

// ownerCharactersKey generates the Redis key for an owner's character set
func (r *redisRepo) ownerCharactersKey(ownerID string) string {
	return fmt.Sprintf("owner:%s:characters", ownerID)
}

func toCharacterData(char *character.Character) *CharacterData {
	return &CharacterData{
		ID:            char.ID,
		OwnerID:       char.OwnerID,
		Name:          char.Name,
		Ancestry:      char.Ancestry,
		Class:         char.Class,
		StartingPack:  char.StartingPack,
		Stats:         char.Stats,
		Skills:        char.Skills,
		Spells:        char.Spells,
		Perks:         char.Perks,
		Gear:          char.Gear,
		GearCostSpent: char.GearCostSpent,
		CreatedAt:     char.CreatedAt,
		UpdatedAt:     char.UpdatedAt,
	}
}

func fromCharacterData(data *CharacterData) *character.Character {
	return &character.Character{
		ID:            data.ID,
		OwnerID:       data.OwnerID,
		Name:          data.Name,
		Ancestry:      data.Ancestry,
		Class:         data.Class,
		StartingPack:  data.StartingPack,
		Stats:         data.Stats,
		Skills:        data.Skills,
		Spells:        data.Spells,
		Perks:         data.Perks,
		Gear:          data.Gear,
		GearCostSpent: data.GearCostSpent,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
}

// Create stores a new character
func (r *redisRepo) Create(ctx context.Context, char *character.Character) error {
	if char == nil {
		return berrors.InvalidArgument("character cannot be nil")
	}
	if char.ID == "" {
		return berrors.InvalidArgument("character ID is required")
	}
	if char.OwnerID == "" {
		return berrors.InvalidArgument("character owner ID is required")
	}

	exists, err := r.client.Exists(ctx, r.key(char.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check character existence: %w", err)
	}
	if exists > 0 {
		return berrors.AlreadyExistsf("character with ID '%s' already exists", char.ID).
			WithMeta("character_id", char.ID)
	}

	data := toCharacterData(char)
	now := time.Now().UTC()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = now
	}
	data.UpdatedAt = now

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}

	// Character doc and owner index are written together
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(char.ID), jsonData, 0)
	pipe.SAdd(ctx, r.ownerCharactersKey(char.OwnerID), char.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create character: %w", err)
	}

	return nil
}

// Get retrieves a character by ID
func (r *redisRepo) Get(ctx context.Context, id string) (*character.Character, error) {
	if id == "" {
		return nil, berrors.InvalidArgument("character ID is required")
	}

	jsonData, err := r.client.Get(ctx, r.key(id)).Result()
	if err == redis.Nil {
		return nil, berrors.NotFoundf("character with ID '%s' not found", id).
			WithMeta("character_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character: %w", err)
	}

	var data CharacterData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}

	return fromCharacterData(&data), nil
}

// GetByOwner retrieves all characters for a specific owner
func (r *redisRepo) GetByOwner(ctx context.Context, ownerID string) ([]*character.Character, error) {
	if ownerID == "" {
		return nil, berrors.InvalidArgument("owner ID is required")
	}

	ids, err := r.client.SMembers(ctx, r.ownerCharactersKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list character IDs: %w", err)
	}

	chars := make([]*character.Character, 0, len(ids))
	for _, id := range ids {
		char, err := r.Get(ctx, id)
		if err != nil {
			// Skip index entries whose doc is gone
			continue
		}
		chars = append(chars, char)
	}

	return chars, nil
}

// Delete removes a character and its owner index entry
func (r *redisRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return berrors.InvalidArgument("character ID is required")
	}

	char, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(id))
	pipe.SRem(ctx, r.ownerCharactersKey(char.OwnerID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}

	return nil
}
