package gate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muzzleid/muzzle-go/internal/errors"
	"github.com/muzzleid/muzzle-go/internal/reference"
	"github.com/muzzleid/muzzle-go/internal/registry"
)

// fakeStore records ByLabel calls and serves canned subjects.
type fakeStore struct {
	byLabelCalls int
	subjects     []registry.Subject
	err          error
}

func (f *fakeStore) Open() error  { return nil }
func (f *fakeStore) Close() error { return nil }
func (f *fakeStore) Insert(ctx context.Context, subject *registry.Subject) error {
	return nil
}
func (f *fakeStore) Get(ctx context.Context, subjectID string) (*registry.Subject, error) {
	return nil, nil
}
func (f *fakeStore) Search(ctx context.Context, filters registry.SearchFilters) ([]registry.Subject, error) {
	return nil, nil
}
func (f *fakeStore) ByLabel(ctx context.Context, label string, limit int) ([]registry.Subject, error) {
	f.byLabelCalls++
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.subjects) {
		return f.subjects[:limit], nil
	}
	return f.subjects, nil
}
func (f *fakeStore) All(ctx context.Context) ([]registry.Subject, error) {
	return nil, nil
}

func newTestProvider(t *testing.T) *reference.Provider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cattle.csv")
	body := "12_digit_id,cattle_name,class\n778268000000,Bessie,breedA\n778268000001,Clarabelle,breedA\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	provider, err := reference.NewProvider(path)
	require.NoError(t, err)
	return provider
}

func TestStateBands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		confidence       float64
		displayThreshold float64
		want             State
	}{
		{"well below floor", 0.50, 0.50, StateUnreliable},
		{"just below floor", 0.8999, 0.50, StateUnreliable},
		{"scenario 0.87 vs floor 0.90", 0.87, 0.50, StateUnreliable},
		{"exactly at floor", 0.90, 0.50, StateMapped},
		{"above floor above display", 0.95, 0.50, StateMapped},
		{"exactly at display threshold", 0.95, 0.95, StateMapped},
		{"display above floor, confidence between", 0.92, 0.95, StateBelowDisplayThreshold},
		{"display above floor, confidence above both", 0.96, 0.95, StateMapped},
		{"display at one", 0.99, 1.0, StateBelowDisplayThreshold},
		{"everything at one", 1.0, 1.0, StateMapped},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &fakeStore{}
			g := New(store, newTestProvider(t))

			result, err := g.Evaluate(context.Background(), Prediction{Label: "breedA", Confidence: tt.confidence}, tt.displayThreshold)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.State)

			if tt.want == StateMapped {
				assert.Equal(t, 1, store.byLabelCalls)
			} else {
				assert.Zero(t, store.byLabelCalls, "no lookups outside mapped state")
				assert.Empty(t, result.Reference)
				assert.Empty(t, result.Subjects)
			}
		})
	}
}

func TestMappedReturnsBothLookups(t *testing.T) {
	t.Parallel()

	store := &fakeStore{subjects: []registry.Subject{{SubjectID: "778268000000", Name: "Bessie", Label: "breedA"}}}
	g := New(store, newTestProvider(t))

	result, err := g.Evaluate(context.Background(), Prediction{Label: "breedA", Confidence: 0.97}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, StateMapped, result.State)
	require.Len(t, result.Reference, 2)
	assert.Equal(t, "Bessie", result.Reference[0].Name, "source order")
	require.Len(t, result.Subjects, 1)
}

func TestMappedEmptyLookupsAreValid(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	g := New(store, newTestProvider(t))

	result, err := g.Evaluate(context.Background(), Prediction{Label: "breedUnknown", Confidence: 0.95}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, StateMapped, result.State)
	assert.Empty(t, result.Reference)
	assert.Empty(t, result.Subjects)
}

func TestRegistryErrorPropagates(t *testing.T) {
	t.Parallel()

	storeErr := errors.Newf("connection refused").Category(errors.CategoryDatabase).Build()
	store := &fakeStore{err: storeErr}
	g := New(store, newTestProvider(t))

	_, err := g.Evaluate(context.Background(), Prediction{Label: "breedA", Confidence: 0.95}, 0.5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestEvaluateValidation(t *testing.T) {
	t.Parallel()

	g := New(&fakeStore{}, newTestProvider(t))
	ctx := context.Background()

	_, err := g.Evaluate(ctx, Prediction{Label: "breedA", Confidence: 1.2}, 0.5)
	assert.True(t, errors.IsValidation(err))

	_, err = g.Evaluate(ctx, Prediction{Label: "breedA", Confidence: -0.1}, 0.5)
	assert.True(t, errors.IsValidation(err))

	_, err = g.Evaluate(ctx, Prediction{Label: "breedA", Confidence: 0.95}, 1.5)
	assert.True(t, errors.IsValidation(err))

	_, err = g.Evaluate(ctx, Prediction{Label: "", Confidence: 0.95}, 0.5)
	assert.True(t, errors.IsValidation(err))
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unreliable", StateUnreliable.String())
	assert.Equal(t, "below_display_threshold", StateBelowDisplayThreshold.String())
	assert.Equal(t, "mapped", StateMapped.String())
	assert.Equal(t, "unknown", State(42).String())
}
