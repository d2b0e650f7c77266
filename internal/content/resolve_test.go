package content_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/emberfell/character-builder/internal/content"
	mockcontent "github.com/emberfell/character-builder/internal/content/mock"
	berrors "github.com/emberfell/character-builder/internal/errors"
)

func TestResolveAllPreservesOrder(t *testing.T) {
	client := content.NewStaticClient(
		gearItem("gear-a", "Alpha", 1),
		gearItem("gear-b", "Beta", 2),
		gearItem("gear-c", "Gamma", 3),
	)

	items, err := content.ResolveAll(context.Background(), client, []string{"gear-c", "gear-a", "gear-b"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "gear-c", items[0].Ref)
	assert.Equal(t, "gear-a", items[1].Ref)
	assert.Equal(t, "gear-b", items[2].Ref)
}

func TestResolveAllSkipsMissing(t *testing.T) {
	client := content.NewStaticClient(gearItem("gear-a", "Alpha", 1))

	items, err := content.ResolveAll(context.Background(), client, []string{"gear-missing", "gear-a"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "gear-a", items[0].Ref)
}

func TestResolveAllAbortsOnLookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockcontent.NewMockClient(ctrl)
	client.EXPECT().
		GetItem(gomock.Any(), gomock.Any()).
		Return(nil, berrors.Unavailable("store down")).
		MinTimes(1)

	_, err := content.ResolveAll(context.Background(), client, []string{"gear-a", "gear-b"})
	assert.Error(t, err)
}
