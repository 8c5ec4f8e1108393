package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeNotImplemented     ErrorCode = "COMMON_010"
)

// Aliases kept so call sites read naturally at layer boundaries.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")

	CodeDatabaseError = ErrCodeDatabaseError
	CodeDBQueryError  = ErrCodeDatabaseError
)

// Scoring Module Error Codes
const (
	ErrCodeScoreNotFound        ErrorCode = "SCORE_001"
	ErrCodeInsufficientData     ErrorCode = "SCORE_002"
	ErrCodeCalibrationBarrier   ErrorCode = "SCORE_003"
	ErrCodeInvalidWeights       ErrorCode = "SCORE_004"
	ErrCodePeerResolutionFailed ErrorCode = "SCORE_005"
)

// Batch Run Error Codes
const (
	ErrCodeBatchExhausted     ErrorCode = "RUN_001"
	ErrCodeRunNotFound        ErrorCode = "RUN_002"
	ErrCodePartitionStore     ErrorCode = "RUN_003"
	ErrCodePartitionCorrupt   ErrorCode = "RUN_004"
	ErrCodeRunAlreadyMerged   ErrorCode = "RUN_005"
	ErrCodeEmptyPopulation    ErrorCode = "RUN_006"
	ErrCodeSnapshotWriteError ErrorCode = "RUN_007"
)

// Reference / Graph Store Error Codes
const (
	ErrCodeReferenceStore   ErrorCode = "REF_001"
	ErrCodeReferenceParse   ErrorCode = "REF_002"
	ErrCodeGraphUnavailable ErrorCode = "GRAPH_001"
	ErrCodeGraphQueryFailed ErrorCode = "GRAPH_002"
	ErrCodeGraphFrontier    ErrorCode = "GRAPH_003"
)

// Messaging Error Codes
const (
	ErrCodeEventPublishFailed ErrorCode = "MSG_001"
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeScoreNotFound:        "risk score not found",
	ErrCodeInsufficientData:     "insufficient data to score provider",
	ErrCodeCalibrationBarrier:   "calibration requires all accepted partitions",
	ErrCodeInvalidWeights:       "component weights must sum to 1",
	ErrCodePeerResolutionFailed: "peer group resolution failed",

	ErrCodeBatchExhausted:     "batch failed after all retries",
	ErrCodeRunNotFound:        "run not found",
	ErrCodePartitionStore:     "partition store error",
	ErrCodePartitionCorrupt:   "partition payload is corrupt",
	ErrCodeRunAlreadyMerged:   "run already merged",
	ErrCodeEmptyPopulation:    "no providers matched the run selection",
	ErrCodeSnapshotWriteError: "failed to write population snapshot",

	ErrCodeReferenceStore:   "reference store error",
	ErrCodeReferenceParse:   "failed to decode reference rows",
	ErrCodeGraphUnavailable: "ownership graph unavailable",
	ErrCodeGraphQueryFailed: "ownership graph query failed",
	ErrCodeGraphFrontier:    "ownership expansion frontier exceeded limit",

	ErrCodeEventPublishFailed: "failed to publish run event",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
