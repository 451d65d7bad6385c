package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the "<MODULE>_<NNN>" convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessagingError     ErrorCode = "COMMON_018"
)

// Aliases used by call sites that predate the module prefixes.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES ErrorCode = "MOL_001"
	ErrCodeMoleculeTooSmall      ErrorCode = "MOL_002"
	ErrCodeAtomInvalid           ErrorCode = "MOL_003"
	ErrCodeAtomIndexOutOfRange   ErrorCode = "MOL_004"
	ErrCodeBondInvalid           ErrorCode = "MOL_005"
)

// Graph Codec Error Codes
const (
	ErrCodeBondTypeUnsupported ErrorCode = "GRF_001"
	ErrCodeBondCodeInvalid     ErrorCode = "GRF_002"
	ErrCodeInvalidMaxLength    ErrorCode = "GRF_003"
	ErrCodeGraphShapeMismatch  ErrorCode = "GRF_004"
	ErrCodeEdgeValueInvalid    ErrorCode = "GRF_005"
	ErrCodeGraphNotFound       ErrorCode = "GRF_006"
)

// Dataset Error Codes
const (
	ErrCodeDatasetNotFound     ErrorCode = "DST_001"
	ErrCodeShardCorrupt        ErrorCode = "DST_002"
	ErrCodeShardVersion        ErrorCode = "DST_003"
	ErrCodeDatasetEmpty        ErrorCode = "DST_004"
	ErrCodeTensorShapeMismatch ErrorCode = "DST_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeMoleculeInvalidSMILES: http.StatusBadRequest,
	ErrCodeMoleculeTooSmall:      http.StatusUnprocessableEntity,
	ErrCodeAtomInvalid:           http.StatusBadRequest,
	ErrCodeAtomIndexOutOfRange:   http.StatusBadRequest,
	ErrCodeBondInvalid:           http.StatusBadRequest,

	ErrCodeBondTypeUnsupported: http.StatusUnprocessableEntity,
	ErrCodeBondCodeInvalid:     http.StatusBadRequest,
	ErrCodeInvalidMaxLength:    http.StatusBadRequest,
	ErrCodeGraphShapeMismatch:  http.StatusBadRequest,
	ErrCodeEdgeValueInvalid:    http.StatusBadRequest,
	ErrCodeGraphNotFound:       http.StatusNotFound,

	ErrCodeDatasetNotFound:     http.StatusNotFound,
	ErrCodeShardCorrupt:        http.StatusInternalServerError,
	ErrCodeShardVersion:        http.StatusInternalServerError,
	ErrCodeDatasetEmpty:        http.StatusUnprocessableEntity,
	ErrCodeTensorShapeMismatch: http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "messaging error",

	ErrCodeMoleculeInvalidSMILES: "invalid SMILES",
	ErrCodeMoleculeTooSmall:      "molecule has fewer atoms than the encoding requires",
	ErrCodeAtomInvalid:           "invalid atom",
	ErrCodeAtomIndexOutOfRange:   "atom index out of range",
	ErrCodeBondInvalid:           "invalid bond",

	ErrCodeBondTypeUnsupported: "bond type not encodable",
	ErrCodeBondCodeInvalid:     "bond code outside 1..5",
	ErrCodeInvalidMaxLength:    "max length must not be negative",
	ErrCodeGraphShapeMismatch:  "node list and edge matrix shapes disagree",
	ErrCodeEdgeValueInvalid:    "edge value rejected in strict mode",
	ErrCodeGraphNotFound:       "encoded graph not found",

	ErrCodeDatasetNotFound:     "dataset not found",
	ErrCodeShardCorrupt:        "dataset shard is corrupt",
	ErrCodeShardVersion:        "unsupported dataset shard version",
	ErrCodeDatasetEmpty:        "no molecule could be featurized",
	ErrCodeTensorShapeMismatch: "tensor shape does not match max length",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
