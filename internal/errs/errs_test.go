package errs_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast/internal/errs"
)

func TestNewCarriesCodeAndFields(t *testing.T) {
	err := errs.New(errs.CodeConfigValidateInvalid, "bad dimension",
		errs.FieldProvider("openai"),
		errs.Field("dimension", 0),
	)

	require.Error(t, err)
	assert.Equal(t, errs.CodeConfigValidateInvalid, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "bad dimension")

	fields := errs.FieldsOf(err)
	assert.Equal(t, "openai", fields["provider"])
	assert.Equal(t, 0, fields["dimension"])
}

func TestErrorfFormats(t *testing.T) {
	err := errs.Errorf(errs.CodeFeedWriteFailure, "writing %s: %d items", "feed.xml", 3)
	assert.Equal(t, errs.CodeFeedWriteFailure, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "writing feed.xml: 3 items")
}

func TestWrapKeepsChain(t *testing.T) {
	root := stderrors.New("no space left on device")
	err := errs.Wrap(root, errs.CodeIndexPersistFailure, "write index", errs.FieldPath("/tmp/x.index"))

	assert.ErrorIs(t, err, root)
	assert.Equal(t, errs.CodeIndexPersistFailure, errs.CodeOf(err))
	assert.Equal(t, "/tmp/x.index", errs.FieldsOf(err)["path"])
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, errs.Wrap(nil, errs.CodePipelineInternal, "ignored"))
	assert.NoError(t, errs.Wrapf(nil, errs.CodePipelineInternal, "ignored %d", 1))
}

func TestCodeOf_JoinedErrors(t *testing.T) {
	joined := stderrors.Join(
		errs.New(errs.CodeIndexPersistFailure, "index"),
		stderrors.New("plain"),
	)
	assert.Equal(t, errs.CodeIndexPersistFailure, errs.CodeOf(joined))
}

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errs.Code
		want bool
	}{
		{"matching", errs.New(errs.CodeFeedFetchFailure, "x"), errs.CodeFeedFetchFailure, true},
		{"different", errs.New(errs.CodeFeedFetchFailure, "x"), errs.CodeFeedWriteFailure, false},
		{"nil", nil, errs.CodeFeedFetchFailure, false},
		{"plain", stderrors.New("x"), errs.CodePipelineInternal, false},
		{
			"innermost code wins",
			errs.Wrap(errs.New(errs.CodeEpisodeNotFound, "inner"), errs.CodePipelineInternal, "outer"),
			errs.CodeEpisodeNotFound,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errs.HasCode(tt.err, tt.code))
		})
	}
}

func TestReasonHelpers(t *testing.T) {
	assert.True(t, errs.IsNotFound(errs.New(errs.CodeEpisodeNotFound, "gone")))
	assert.False(t, errs.IsNotFound(errs.New(errs.CodeEpisodeStoreFailure, "io")))

	assert.True(t, errs.IsInvalidInput(errs.New(errs.CodePipelineInputInvalid, "x")))
	assert.True(t, errs.IsInvalidInput(errs.New(errs.CodeConfigValidateInvalid, "x")))
	assert.True(t, errs.IsInvalidInput(errs.New(errs.CodeConfigParseInvalid, "x")))
	assert.False(t, errs.IsInvalidInput(errs.New(errs.CodeFeedFetchFailure, "x")))
	assert.False(t, errs.IsInvalidInput(nil))
}
