package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/zsiec/adsplice/internal/adsource"
	"github.com/zsiec/adsplice/internal/bmff"
	"github.com/zsiec/adsplice/internal/decision"
	"github.com/zsiec/adsplice/internal/segment"
	"github.com/zsiec/adsplice/internal/segpath"
	"github.com/zsiec/adsplice/internal/splice"
)

// Error codes attached to converted segment and pipeline errors.
const (
	CodeTruncatedBox        = "TRUNCATED_BOX"
	CodeMalformedTree       = "MALFORMED_TREE"
	CodeNoFragmentHeader    = "NO_FRAGMENT_HEADER"
	CodeSequenceOutOfRange  = "SEQUENCE_OUT_OF_RANGE"
	CodeInvalidPathFormat   = "INVALID_PATH_FORMAT"
	CodeAdAssetNotFound     = "AD_ASSET_NOT_FOUND"
	CodeAdSourceUnavailable = "AD_SOURCE_UNAVAILABLE"
)

// FromError converts err into an AppError. AppErrors anywhere in the chain are
// returned as is; unrecognized errors become internal errors.
func FromError(err error) *AppError {
	if appErr, ok := GetAppError(err); ok {
		return appErr
	}

	var boxErr *bmff.BoxError
	switch {
	case stderrors.As(err, &boxErr):
		code := CodeMalformedTree
		if stderrors.Is(boxErr.Kind, bmff.ErrTruncatedBox) {
			code = CodeTruncatedBox
		}
		return WrapUnprocessableSegment(err, boxErr.Reason).
			WithCode(code).
			WithDetails(map[string]interface{}{
				"box_type": boxErr.Type.String(),
				"offset":   boxErr.Offset,
			})
	case stderrors.Is(err, segment.ErrNoFragmentHeader):
		return WrapUnprocessableSegment(err, "Segment has no moof/mfhd fragment header").WithCode(CodeNoFragmentHeader)
	case stderrors.Is(err, decision.ErrSequenceOutOfRange):
		return WrapUnprocessableSegment(err, "Target sequence does not fit the fragment header").WithCode(CodeSequenceOutOfRange)
	case stderrors.Is(err, segpath.ErrInvalidPathFormat):
		return Wrap(err, ErrorTypeValidation, "Path is not a segment path", http.StatusBadRequest).WithCode(CodeInvalidPathFormat)
	case stderrors.Is(err, adsource.ErrAssetNotFound):
		return WrapBadGateway(err, "Ad asset not found").WithCode(CodeAdAssetNotFound)
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrorTypeTimeout, "Upstream request timed out", http.StatusGatewayTimeout)
	case splice.StageOf(err) == splice.StageFetch:
		return WrapBadGateway(err, "Ad source request failed").WithCode(CodeAdSourceUnavailable)
	}

	return WrapInternalError(err, "An unexpected error occurred")
}
