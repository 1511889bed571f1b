package wizard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/model"
)

func TestAggregator_AddIsIdempotent(t *testing.T) {
	a := NewAggregator()
	ref := model.FileRef{Handle: "h1", Filename: "a.pdf"}

	res, err := a.Add(model.CategoryReports, ref)
	require.NoError(t, err)
	assert.Equal(t, Added, res)

	res, err = a.Add(model.CategoryReports, ref)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, res)

	files := a.Files(model.CategoryReports)
	require.Len(t, files, 1)
	assert.Equal(t, model.UploadDone, files[0].Status)
	assert.Equal(t, model.CategoryReports, files[0].Category)
}

func TestAggregator_CategoriesAreIndependent(t *testing.T) {
	a := NewAggregator()
	ref := model.FileRef{Handle: "same"}
	_, err := a.Add(model.CategoryReports, ref)
	require.NoError(t, err)
	res, err := a.Add(model.CategoryImages, ref)
	require.NoError(t, err)
	assert.Equal(t, Added, res)
	assert.Len(t, a.All(), 2)
}

func TestAggregator_CapIsRejected(t *testing.T) {
	a := NewAggregator()
	for i := 0; i < 10; i++ {
		_, err := a.Add(model.CategoryImages, model.FileRef{Handle: fmt.Sprintf("h%d", i)})
		require.NoError(t, err)
	}
	_, err := a.Add(model.CategoryImages, model.FileRef{Handle: "h10"})
	assert.ErrorIs(t, err, ErrCategoryFull)
	assert.Equal(t, 10, a.Count(model.CategoryImages))

	res, err := a.Add(model.CategoryImages, model.FileRef{Handle: "h3"})
	require.NoError(t, err)
	assert.Equal(t, Duplicate, res)
}

func TestAggregator_Remove(t *testing.T) {
	a := NewAggregator()
	for _, h := range []string{"a", "b", "c"} {
		_, err := a.Add(model.CategoryReports, model.FileRef{Handle: h})
		require.NoError(t, err)
	}

	removed, ok, err := a.Remove(model.CategoryReports, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.UploadRemoved, removed.Status)
	files := a.Files(model.CategoryReports)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].Handle)
	assert.Equal(t, "c", files[1].Handle)

	_, ok, err = a.Remove(model.CategoryReports, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, a.Files(model.CategoryReports), 2)
}

func TestAggregator_UnknownCategory(t *testing.T) {
	a := NewAggregator()
	_, err := a.Add("videos", model.FileRef{Handle: "x"})
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, _, err = a.Remove("videos", "x")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestAggregator_FilesReturnsCopy(t *testing.T) {
	a := NewAggregator()
	_, err := a.Add(model.CategoryReports, model.FileRef{Handle: "a"})
	require.NoError(t, err)
	files := a.Files(model.CategoryReports)
	files[0].Handle = "mutated"
	assert.Equal(t, "a", a.Files(model.CategoryReports)[0].Handle)
}
