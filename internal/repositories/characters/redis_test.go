package characters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/shared"
	berrors "github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/repositories/characters"
	"github.com/emberfell/character-builder/internal/testutils"
)

type RedisRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	repo characters.Repository
}

func (s *RedisRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	client, _ := testutils.CreateTestRedisClient(s.T())
	s.repo = characters.NewRedisRepository(&characters.RedisRepoConfig{
		Client: client,
	})
}

func (s *RedisRepositorySuite) testCharacter(id, owner string) *character.Character {
	return &character.Character{
		ID:       id,
		OwnerID:  owner,
		Name:     "Vessa",
		Ancestry: "ancestry-emberkin",
		Class:    "class-warden",
		Stats: map[shared.StatKey]int{
			shared.StatMight:     6,
			shared.StatDexterity: 5,
			shared.StatAwareness: 4,
			shared.StatReason:    4,
			shared.StatPresence:  4,
			shared.StatLuck:      3,
		},
		Skills:        []shared.SkillKey{shared.SkillAthletics, shared.SkillSurvival},
		Spells:        []string{},
		Perks:         []string{"perk-iron-will"},
		Gear:          []string{"gear-longknife"},
		GearCostSpent: 40,
	}
}

func (s *RedisRepositorySuite) TestCreateAndGet() {
	char := s.testCharacter("char-1", "owner-1")
	s.Require().NoError(s.repo.Create(s.ctx, char))

	got, err := s.repo.Get(s.ctx, "char-1")
	s.Require().NoError(err)
	s.Equal("Vessa", got.Name)
	s.Equal("class-warden", got.Class)
	s.Equal(6, got.Stats[shared.StatMight])
	s.Equal([]string{"perk-iron-will"}, got.Perks)
	s.InDelta(40, got.GearCostSpent, 0.001)
	s.False(got.CreatedAt.IsZero())
}

func (s *RedisRepositorySuite) TestCreateDuplicate() {
	char := s.testCharacter("char-1", "owner-1")
	s.Require().NoError(s.repo.Create(s.ctx, char))

	err := s.repo.Create(s.ctx, s.testCharacter("char-1", "owner-2"))
	s.Require().Error(err)
	s.True(berrors.IsAlreadyExists(err))
}

func (s *RedisRepositorySuite) TestCreateValidation() {
	s.Error(s.repo.Create(s.ctx, nil))
	s.Error(s.repo.Create(s.ctx, &character.Character{OwnerID: "owner-1"}))
	s.Error(s.repo.Create(s.ctx, &character.Character{ID: "char-1"}))
}

func (s *RedisRepositorySuite) TestGetNotFound() {
	_, err := s.repo.Get(s.ctx, "missing")
	s.Require().Error(err)
	s.True(berrors.IsNotFound(err))
}

func (s *RedisRepositorySuite) TestGetByOwner() {
	s.Require().NoError(s.repo.Create(s.ctx, s.testCharacter("char-1", "owner-1")))
	s.Require().NoError(s.repo.Create(s.ctx, s.testCharacter("char-2", "owner-1")))
	s.Require().NoError(s.repo.Create(s.ctx, s.testCharacter("char-3", "owner-2")))

	chars, err := s.repo.GetByOwner(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Len(chars, 2)

	chars, err = s.repo.GetByOwner(s.ctx, "owner-3")
	s.Require().NoError(err)
	s.Empty(chars)
}

func (s *RedisRepositorySuite) TestDelete() {
	s.Require().NoError(s.repo.Create(s.ctx, s.testCharacter("char-1", "owner-1")))
	s.Require().NoError(s.repo.Delete(s.ctx, "char-1"))

	_, err := s.repo.Get(s.ctx, "char-1")
	s.True(berrors.IsNotFound(err))

	// Owner index entry goes with the doc
	chars, err := s.repo.GetByOwner(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Empty(chars)
}

func (s *RedisRepositorySuite) TestDeleteNotFound() {
	err := s.repo.Delete(s.ctx, "missing")
	s.True(berrors.IsNotFound(err))
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositorySuite))
}
