package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rowResultJSON = `{"UploadResult": {
  "record_result": {"Uploaded": {"id": 7, "picklistAdditions": [],
    "info": {"tableName": "CollectionObject", "columns": ["Cat #"], "treeInfo": null}}},
  "toOne": {
    "cataloger": {"UploadResult": {
      "record_result": {"MatchedMultiple": {"ids": [10, 11], "key": "K1",
        "info": {"tableName": "Agent", "columns": ["Cataloger"], "treeInfo": null}}},
      "toOne": {}, "toMany": {}}}
  },
  "toMany": {
    "determinations": [
      {"UploadResult": {
        "record_result": {"ParseFailures": {"failures": [["Current 1", "value must be true or false"]]}},
        "toOne": {
          "taxon": {"UploadResult": {
            "record_result": {"NoMatch": {"info": {"tableName": "Taxon", "columns": [],
              "treeInfo": {"rank": "Species", "name": "Homo sapiens"}}}},
            "toOne": {}, "toMany": {}}}
        },
        "toMany": {}}},
      {"UploadResult": {
        "record_result": {"FailedBusinessRule": {"message": "date is in the future",
          "payload": {"field": "determinedDate"},
          "info": {"tableName": "Determination", "columns": ["Det Date 2"], "treeInfo": null}}},
        "toOne": {}, "toMany": {}}}
    ]
  }
}}`

func TestDecodeResult(t *testing.T) {
	r, err := DecodeResult([]byte(rowResultJSON))
	require.NoError(t, err)

	assert.Equal(t, Uploaded, r.Record.Kind)
	assert.Equal(t, 7, r.Record.ID)
	require.NotNil(t, r.Record.Info)
	assert.Equal(t, []string{"Cat #"}, r.Record.Info.Columns)
	assert.Nil(t, r.Record.Info.TreeInfo)

	cataloger := r.ToOne["cataloger"]
	require.NotNil(t, cataloger)
	assert.Equal(t, MatchedMultiple, cataloger.Record.Kind)
	assert.Equal(t, []int{10, 11}, cataloger.Record.IDs)
	assert.Equal(t, "K1", cataloger.Record.Key)

	dets := r.ToMany["determinations"]
	require.Len(t, dets, 2)
	assert.Equal(t, []ParseFailure{{Column: "Current 1", Message: "value must be true or false"}}, dets[0].Record.Failures)

	taxon := dets[0].ToOne["taxon"]
	require.NotNil(t, taxon)
	assert.Equal(t, NoMatch, taxon.Record.Kind)
	assert.Equal(t, &TreeInfo{Rank: "Species", Name: "Homo sapiens"}, taxon.Record.Info.TreeInfo)

	assert.Equal(t, FailedBusinessRule, dets[1].Record.Kind)
	assert.Equal(t, "date is in the future", dets[1].Record.Message)
	assert.Equal(t, map[string]any{"field": "determinedDate"}, dets[1].Record.Payload)

	assert.True(t, r.HasFailures())
}

func TestDecodeResult_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		unknown bool
	}{
		{"unknown kind", `{"UploadResult": {"record_result": {"Exploded": {}}, "toOne": {}, "toMany": {}}}`, true},
		{"nested unknown kind", `{"UploadResult": {"record_result": {"NullRecord": {}}, "toMany": {}, "toOne": {
			"cataloger": {"UploadResult": {"record_result": {"Exploded": {}}, "toOne": {}, "toMany": {}}}}}}`, true},
		{"no upload result", `{"result": {}}`, false},
		{"two outcomes", `{"UploadResult": {"record_result": {"NullRecord": {}, "Matched": {"id": 1}}}}`, false},
		{"bad failure", `{"UploadResult": {"record_result": {"ParseFailures": {"failures": [["only column"]]}}}}`, false},
		{"not json", `{"UploadResult": `, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResult([]byte(tt.doc))
			require.Error(t, err)
			assert.Equal(t, tt.unknown, errors.Is(err, ErrUnknownRecordKind))
		})
	}
}

func TestDecodeRowResponse(t *testing.T) {
	r, err := DecodeRowResponse([]byte(`{"result": null}`))
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = DecodeRowResponse([]byte(`{"result": {"UploadResult": {"record_result": {"Matched": {"id": 3}}, "toOne": {}, "toMany": {}}}}`))
	require.NoError(t, err)
	assert.Equal(t, Matched, r.Record.Kind)
	assert.False(t, r.HasFailures())
}

func TestParseFailure_ObjectForm(t *testing.T) {
	r, err := DecodeResult([]byte(`{"UploadResult": {"record_result": {"ParseFailures": {"failures": [
		{"column": "Lat", "message": "bad latitude", "payload": {}}]}}}}`))
	require.NoError(t, err)
	assert.Equal(t, []ParseFailure{{Column: "Lat", Message: "bad latitude"}}, r.Record.Failures)
}

func TestRecordKind(t *testing.T) {
	for _, k := range []RecordKind{NullRecord, Matched, MatchedMultiple, Uploaded, NoMatch, ParseFailures, FailedBusinessRule, PropagatedFailure} {
		parsed, err := ParseRecordKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	assert.Equal(t, "MatchedMultiple", MatchedMultiple.String())
	assert.Equal(t, "RecordKind(0)", RecordKind(0).String())
	assert.Equal(t, "RecordKind(42)", RecordKind(42).String())

	_, err := ParseRecordKind("matched")
	assert.ErrorIs(t, err, ErrUnknownRecordKind)

	assert.True(t, NoMatch.IsFailure())
	assert.False(t, Uploaded.IsFailure())
	assert.False(t, NullRecord.IsFailure())
}
