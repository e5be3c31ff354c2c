package reference

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muzzleid/muzzle-go/internal/errors"
)

const sampleCSV = `12_digit_id,cattle_name,class
778268000000,Bessie,breedA
7.78268E+11,Clarabelle,breedA
"123,456,789,012",Daisy,breedB
123456789012.0,Buttercup,breedB
not-a-number,Mystery,breedC
`

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		want       string
		normalized bool
	}{
		{"scientific notation", "7.78268E+11", "778268000000", true},
		{"trailing point zero", "123456789012.0", "123456789012", true},
		{"thousands separators", "123,456,789,012", "123456789012", true},
		{"plain digits", "778268000000", "778268000000", true},
		{"malformed passes through", "ABC-123-XYZ", "ABC-123-XYZ", false},
		{"fractional kept as cleaned", "123.45", "123.45", false},
		{"whitespace trimmed", "  42  ", "42", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, normalized := NormalizeID(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.normalized, normalized)
		})
	}
}

func TestLoadAndLookup(t *testing.T) {
	t.Parallel()

	table, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())
	assert.Equal(t, 2, table.Fallbacks, "non-numeric and fractional ids fall back")

	breedA := table.LookupByLabel("breedA")
	require.Len(t, breedA, 2)
	// Source order preserved.
	assert.Equal(t, "Bessie", breedA[0].Name)
	assert.Equal(t, "Clarabelle", breedA[1].Name)
	assert.Equal(t, "778268000000", breedA[1].ExternalID)

	assert.Empty(t, table.LookupByLabel("breedZ"))
}

func TestLoadMissingColumnFailsFast(t *testing.T) {
	t.Parallel()

	_, err := Load(strings.NewReader("12_digit_id,cattle_name\n1,Bessie\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryReferenceLoad))
}

func TestLoadEmptyBody(t *testing.T) {
	t.Parallel()

	table, err := Load(strings.NewReader("12_digit_id,cattle_name,class\n"))
	require.NoError(t, err)
	assert.Zero(t, table.Len())
	assert.Empty(t, table.LookupByLabel("breedA"))
}

func writeSample(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cattle.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestProviderInvalidateSwapsOnComplete(t *testing.T) {
	t.Parallel()

	path := writeSample(t, sampleCSV)
	provider, err := NewProvider(path)
	require.NoError(t, err)
	require.Equal(t, 5, provider.Table().Len())

	// Corrupt the source: reload must fail and keep the old table.
	require.NoError(t, os.WriteFile(path, []byte("bogus,header\n1,2\n"), 0o644))
	require.Error(t, provider.Invalidate())
	assert.Equal(t, 5, provider.Table().Len())

	// Fix the source with fewer rows: reload swaps cleanly.
	require.NoError(t, os.WriteFile(path, []byte("12_digit_id,cattle_name,class\n1,Only,breedA\n"), 0o644))
	require.NoError(t, provider.Invalidate())
	assert.Equal(t, 1, provider.Table().Len())
}

func TestProviderMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
