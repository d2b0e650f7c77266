package content_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	berrors "github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/testutils"
)

type RedisIndexSuite struct {
	suite.Suite
	ctx    context.Context
	source *content.StaticClient
	index  *content.RedisIndex
}

func (s *RedisIndexSuite) SetupTest() {
	s.ctx = context.Background()
	client, _ := testutils.CreateTestRedisClient(s.T())
	s.source = content.NewStaticClient(
		gearItem("gear-rope", "Hemp Rope", 5),
		gearItem("gear-longknife", "Longknife", 40),
	)
	s.index = content.NewRedisIndex(&content.RedisIndexConfig{
		Client: client,
		Source: s.source,
		TTL:    time.Minute,
	})
}

func (s *RedisIndexSuite) TestGetItemReadThrough() {
	item, err := s.index.GetItem(s.ctx, "gear-rope")
	s.Require().NoError(err)
	s.Equal("Hemp Rope", item.Name)

	// Served from cache even after the source forgets the item
	s.source.Add(&compendium.Item{Ref: "gear-rope", Name: "Renamed", Category: compendium.CategoryGear})
	item, err = s.index.GetItem(s.ctx, "gear-rope")
	s.Require().NoError(err)
	s.Equal("Hemp Rope", item.Name)
}

func (s *RedisIndexSuite) TestGetItemMissing() {
	_, err := s.index.GetItem(s.ctx, "gear-missing")
	s.True(berrors.IsNotFound(err))
}

func (s *RedisIndexSuite) TestListCategoryCachesUnfiltered() {
	summaries, err := s.index.ListCategory(s.ctx, compendium.CategoryGear, nil)
	s.Require().NoError(err)
	s.Len(summaries, 2)

	// Filters apply locally over the shared cache entry
	filtered, err := s.index.ListCategory(s.ctx, compendium.CategoryGear, &content.Filters{MaxCostUnits: 10})
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal("gear-rope", filtered[0].Ref)
}

func (s *RedisIndexSuite) TestInvalidate() {
	_, err := s.index.GetItem(s.ctx, "gear-rope")
	s.Require().NoError(err)

	s.source.Add(&compendium.Item{Ref: "gear-rope", Name: "Renamed", Category: compendium.CategoryGear})
	s.Require().NoError(s.index.Invalidate(s.ctx, []string{"gear-rope"}, []compendium.Category{compendium.CategoryGear}))

	item, err := s.index.GetItem(s.ctx, "gear-rope")
	s.Require().NoError(err)
	s.Equal("Renamed", item.Name)
}

func TestRedisIndexSuite(t *testing.T) {
	suite.Run(t, new(RedisIndexSuite))
}
