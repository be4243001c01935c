// Package errs provides coded errors for the pipeline.
//
// Codes follow "<area>.<subject>.<operation>.<reason>"; the last segment is
// the reason used by the Is* helpers.
package errs

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeIndexPersistFailure   Code = "store.index.persist.failure"
	CodeIndexDimensionInvalid Code = "store.index.dimension.invalid"
	CodeLedgerPersistFailure  Code = "store.ledger.persist.failure"
	CodeEpisodeStoreFailure   Code = "store.episode.failure"
	CodeEpisodeNotFound       Code = "store.episode.get.not_found"
	CodeEmbeddingUpstream     Code = "embedding.upstream.failure"
	CodeEmbeddingResponse     Code = "embedding.response.invalid"
	CodeEmbeddingConfig       Code = "embedding.config.invalid"
	CodeLLMUpstream           Code = "llm.upstream.failure"
	CodeLLMResponse           Code = "llm.response.invalid"
	CodeLLMConfig             Code = "llm.config.invalid"
	CodeConfigLoadReadFailure Code = "config.load.read.failure"
	CodeConfigParseInvalid    Code = "config.parse.invalid_format"
	CodeConfigValidateInvalid Code = "config.validate.invalid_value"
	CodeFeedFetchFailure      Code = "feed.fetch.failure"
	CodeFeedWriteFailure      Code = "feed.write.failure"
	CodeAudioDownloadFailure  Code = "audio.download.failure"
	CodeAudioTranscodeFailure Code = "audio.transcode.failure"
	CodeTranscribeFailure     Code = "transcribe.run.failure"
	CodeExtractFailure        Code = "extract.rank.failure"
	CodePipelineLockHeld      Code = "pipeline.lock.held"
	CodePipelineInputInvalid  Code = "pipeline.input.invalid"
	CodePipelineInternal      Code = "pipeline.internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}
	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}
	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_value" || r == "invalid_format"
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
