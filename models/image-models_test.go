package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	original  = ImageRef{URL: "https://cdn/o.webp", StorageID: "originals/1/a"}
	decorated = ImageRef{URL: "https://cdn/d.jpg", StorageID: "decorated/1/a/b.jpg"}
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]StatusKind{
		{StatusUploading, StatusUploaded},
		{StatusUploaded, StatusGenerating},
		{StatusGenerating, StatusGenerated},
		{StatusGenerated, StatusGenerating},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	rejected := [][2]StatusKind{
		{StatusUploading, StatusGenerating},
		{StatusUploaded, StatusUploading},
		{StatusUploaded, StatusGenerated},
		{StatusGenerating, StatusUploaded},
		{StatusGenerating, StatusGenerating},
		{StatusGenerated, StatusUploaded},
		{StatusGenerated, StatusGenerated},
	}
	for _, tr := range rejected {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestSourcesFor(t *testing.T) {
	assert.ElementsMatch(t, []StatusKind{StatusUploaded, StatusGenerated}, SourcesFor(StatusGenerating))
	assert.Equal(t, []StatusKind{StatusUploading}, SourcesFor(StatusUploaded))
	assert.Empty(t, SourcesFor(StatusUploading))
}

func TestImageStatus_Validate(t *testing.T) {
	assert.NoError(t, Uploading().Validate())
	assert.NoError(t, Uploaded(original).Validate())
	assert.NoError(t, Generating(original, "make it cosy").Validate())
	assert.NoError(t, Generated(original, decorated, "make it cosy").Validate())

	assert.Error(t, ImageStatus{Kind: StatusUploading, Prompt: "x"}.Validate())
	assert.Error(t, ImageStatus{Kind: StatusUploaded}.Validate())
	assert.Error(t, ImageStatus{Kind: StatusUploaded, Image: &original, Prompt: "x"}.Validate())
	assert.Error(t, Generating(original, "").Validate())
	assert.Error(t, ImageStatus{Kind: StatusGenerated, Image: &original, Prompt: "x"}.Validate())
	assert.Error(t, Uploaded(ImageRef{URL: "https://cdn/o"}).Validate())
	assert.Error(t, ImageStatus{Kind: "failed"}.Validate())
}

func TestImage_SetStatusClearsStaleColumns(t *testing.T) {
	var img Image
	require.NoError(t, img.SetStatus(Generated(original, decorated, "make it cosy")))
	require.NotNil(t, img.DecoratedURL)

	require.NoError(t, img.SetStatus(Generating(original, "brighter")))
	assert.Nil(t, img.DecoratedURL)
	assert.Nil(t, img.DecoratedStorageID)
	assert.Equal(t, Generating(original, "brighter"), img.Status())

	assert.Error(t, img.SetStatus(ImageStatus{Kind: StatusGenerated}))
	assert.Equal(t, StatusGenerating, img.Kind)
}

func TestImage_StorageRefs(t *testing.T) {
	var img Image
	assert.Empty(t, img.StorageRefs())

	require.NoError(t, img.SetStatus(Generated(original, decorated, "p")))
	assert.Equal(t, []ImageRef{original, decorated}, img.StorageRefs())
}

func TestStatusColumns(t *testing.T) {
	cols, err := StatusColumns(Uploaded(original))
	require.NoError(t, err)

	assert.Equal(t, StatusUploaded, cols["status"])
	assert.Equal(t, "https://cdn/o.webp", *(cols["original_url"].(*string)))
	assert.Nil(t, cols["decorated_url"].(*string))
	assert.Nil(t, cols["prompt"].(*string))

	_, err = StatusColumns(ImageStatus{Kind: StatusUploaded})
	assert.Error(t, err)
}

func TestImage_MarshalJSON(t *testing.T) {
	img := Image{UserID: 3}
	require.NoError(t, img.SetStatus(Generating(original, "make it cosy")))

	raw, err := json.Marshal(img)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	status := out["status"].(map[string]interface{})
	assert.Equal(t, "generating", status["kind"])
	assert.Equal(t, "make it cosy", status["prompt"])
	assert.Equal(t, "originals/1/a", status["image"].(map[string]interface{})["storageId"])
	assert.NotContains(t, status, "decoratedImage")
	assert.EqualValues(t, 3, out["userId"])
}
