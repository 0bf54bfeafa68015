package ingest_test

import (
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataStep(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	pid := dv.AddDataset()
	editMetadata := &models.EditMetadata{
		AddFieldValues:     []*models.MetadataField{testutil.MakePrimitiveField("subtitle", "More")},
		ReplaceFieldValues: []*models.MetadataField{testutil.MakePrimitiveField("title", "New title")},
		DeleteFieldValues:  []*models.MetadataField{testutil.MakePrimitiveField("alternativeTitle", "Old")},
	}
	env, _ := newEnv(dv)
	tasks := &models.EditMetadataLog{}

	require.Nil(t, ingest.NewMetadataStep(env, editMetadata, tasks).Run(pid))
	dataset := dv.Dataset(pid)
	assert.Equal(t, "subtitle", dataset.AddedFields[0].TypeName)
	assert.Equal(t, "title", dataset.ReplacedFields[0].TypeName)
	assert.Equal(t, "alternativeTitle", dataset.DeletedFields[0].TypeName)
	assert.True(t, tasks.Completed)
	assert.True(t, tasks.DeleteFieldValues.Completed)
}

func TestMetadataStepResumesAfterFailure(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	pid := dv.AddDataset()
	dv.FailOn("DeleteMetadata", 1, errors.New("502 Bad Gateway"))
	editMetadata := &models.EditMetadata{
		AddFieldValues:    []*models.MetadataField{testutil.MakePrimitiveField("subtitle", "More")},
		DeleteFieldValues: []*models.MetadataField{testutil.MakePrimitiveField("alternativeTitle", "Old")},
	}
	env, _ := newEnv(dv)
	tasks := &models.EditMetadataLog{}

	err := ingest.NewMetadataStep(env, editMetadata, tasks).Run(pid)
	require.NotNil(t, err)
	assert.True(t, tasks.AddFieldValues.Completed)
	assert.True(t, tasks.ReplaceFieldValues.Completed)
	assert.False(t, tasks.DeleteFieldValues.Completed)

	require.Nil(t, ingest.NewMetadataStep(env, editMetadata, tasks).Run(pid))
	assert.Equal(t, 1, dv.CallCount("EditMetadata"))
	assert.Equal(t, 2, dv.CallCount("DeleteMetadata"))
}
