package mutations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parseq/mutation_sdk_go/pkg/mutations"
)

type countingBackend struct {
	mutations.Backend
	pageCalls int
	listCalls int
}

func (b *countingBackend) FetchMutations(ctx context.Context, pageNumber, pageSize int) (*mutations.MutationPage, error) {
	b.pageCalls++
	return &mutations.MutationPage{
		Page:                 mutations.Page{ZeroBasedNumber: pageNumber, Size: pageSize},
		Resources:            []mutations.Mutation{{MutationID: "m1"}},
		ResourcesTotalNumber: 1,
	}, nil
}

func (b *countingBackend) FetchMutationLists(ctx context.Context) ([]mutations.MutationList, error) {
	b.listCalls++
	return nil, nil
}

func TestCachedBackendMemoisesPages(t *testing.T) {
	inner := &countingBackend{}
	client := mutations.NewWithBackend(mutations.NewCachedBackend(inner, time.Minute))
	ctx := context.Background()

	first, err := client.FetchMutations(ctx, 0, 20)
	require.NoError(t, err)
	first.Resources[0] = mutations.Mutation{MutationID: "tampered"}

	second, err := client.FetchMutations(ctx, 0, 20)
	require.NoError(t, err)
	require.Equal(t, "m1", second.Resources[0].MutationID)
	require.Equal(t, 1, inner.pageCalls)

	_, err = client.FetchMutations(ctx, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 2, inner.pageCalls)

	_, err = client.FetchMutationLists(ctx)
	require.NoError(t, err)
	_, err = client.FetchMutationLists(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, inner.listCalls)
}

func TestCachedBackendDisabled(t *testing.T) {
	inner := &countingBackend{}
	require.Same(t, inner, mutations.NewCachedBackend(inner, 0))
}
