package dirstore_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/brettbedarf/dirstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirectoryID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    dirstore.DirectoryID
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "42", want: 42},
		{in: "18446744073709551615", want: dirstore.DirectoryID(^uint64(0))},
		{in: "", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "18446744073709551616", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			t.Parallel()
			got, err := dirstore.ParseDirectoryID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestDirectory_JSON(t *testing.T) {
	t.Parallel()

	parent := dirstore.DirectoryID(0)
	data, err := json.Marshal(&dirstore.Directory{
		ID: 2, Name: "b", ParentID: &parent, Depth: 1, Children: []*dirstore.Directory{},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"name":"b","parent_id":0,"children":[],"depth":1}`, string(data))

	data, err = json.Marshal(&dirstore.Directory{Name: "root", Children: []*dirstore.Directory{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":0,"name":"root","parent_id":null,"children":[],"depth":0}`, string(data))
}

func TestErrors(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("lookup: %w", dirstore.NotFound(7))
		assert.ErrorIs(t, err, dirstore.ErrDirectoryNotFound)
		assert.NotErrorIs(t, err, dirstore.ErrDepthLimitExceeded)

		var nf *dirstore.NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, dirstore.DirectoryID(7), nf.ID)
		assert.Equal(t, "no directory with id 7 found", nf.Error())
	})

	t.Run("depth limit", func(t *testing.T) {
		t.Parallel()
		err := dirstore.DepthLimitExceeded(3)
		assert.ErrorIs(t, err, dirstore.ErrDepthLimitExceeded)
		assert.NotErrorIs(t, err, dirstore.ErrDirectoryNotFound)

		var dl *dirstore.DepthLimitError
		require.ErrorAs(t, err, &dl)
		assert.Equal(t, uint32(3), dl.Max)
		assert.Contains(t, err.Error(), "max: 3")
	})
}
