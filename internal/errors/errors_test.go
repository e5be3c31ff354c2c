package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	err := Newf("something went wrong").Build()
	require.Error(t, err)
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.NotEmpty(t, err.Component)
	assert.False(t, err.Timestamp.IsZero())
}

func TestBuilderExplicitFields(t *testing.T) {
	t.Parallel()

	err := Newf("duplicate subject").
		Component("registry").
		Category(CategoryConflict).
		Context("subject_id", "123456789012").
		Build()

	assert.Equal(t, "registry", err.Component)
	assert.Equal(t, CategoryConflict, err.Category)
	assert.Equal(t, "123456789012", err.GetContext()["subject_id"])
}

func TestContextIsCopied(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Context("key", "value").Build()
	ctx := err.GetContext()
	ctx["key"] = "mutated"
	assert.Equal(t, "value", err.GetContext()["key"])
}

func TestCategoryChecks(t *testing.T) {
	t.Parallel()

	conflict := Newf("exists").Category(CategoryConflict).Build()
	missing := Newf("absent").Category(CategoryNotFound).Build()
	invalid := Newf("bad id").Category(CategoryValidation).Build()

	assert.True(t, IsConflict(conflict))
	assert.False(t, IsConflict(missing))
	assert.True(t, IsNotFound(missing))
	assert.True(t, IsValidation(invalid))
	assert.False(t, IsValidation(conflict))
}

func TestWrappedCategoryStillMatches(t *testing.T) {
	t.Parallel()

	inner := Newf("inner").Category(CategoryTimeout).Build()
	wrapped := Newf("outer: %w", inner)
	assert.True(t, IsCategory(wrapped.Build(), CategoryGeneric))
	assert.True(t, IsCategory(inner, CategoryTimeout))

	var enhanced *EnhancedError
	require.True(t, As(wrapped.Build(), &enhanced))
}

func TestUnwrapPreservesSentinel(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	err := New(sentinel).Category(CategoryDatabase).Build()
	assert.True(t, Is(err, sentinel))
	assert.Equal(t, sentinel, Unwrap(err))
}
