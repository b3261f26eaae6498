package errors

import (
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal      ErrorCode = "COMMON_001"
	ErrCodeBadRequest    ErrorCode = "COMMON_002"
	ErrCodeNotFound      ErrorCode = "COMMON_005"
	ErrCodeValidation    ErrorCode = "COMMON_010"
	ErrCodeSerialization ErrorCode = "COMMON_011"
	ErrCodeCacheError    ErrorCode = "COMMON_013"
	ErrCodeStorageError  ErrorCode = "COMMON_017"
	ErrCodeMessageError  ErrorCode = "COMMON_018"
	ErrCodeIO            ErrorCode = "COMMON_019"
)

// Aliases kept short for call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES       ErrorCode = "MOL_001"
	ErrCodeMoleculeInvalidFormat       ErrorCode = "MOL_003"
	ErrCodeMoleculeParsingFailed       ErrorCode = "MOL_006"
	ErrCodeFingerprintGenerationFailed ErrorCode = "MOL_007"
	ErrCodeSimilarityMetricUnsupported ErrorCode = "MOL_010"
)

// DDI pipeline error codes.  Recoverable codes are recorded as stage warnings;
// the rest abort the run.
const (
	ErrCodeParseFailure            ErrorCode = "DDI_001"
	ErrCodeMissingFeatureVector    ErrorCode = "DDI_002"
	ErrCodeUnknownInteractionLabel ErrorCode = "DDI_003"
	ErrCodeMissingKnownDDIRecords  ErrorCode = "DDI_004"
	ErrCodeMissingSimilarity       ErrorCode = "DDI_005"
	ErrCodeMalformedRecord         ErrorCode = "DDI_006"
	ErrCodeDimensionMismatch       ErrorCode = "DDI_007"
	ErrCodeArtifactNotFound        ErrorCode = "DDI_008"
	ErrCodeModelError              ErrorCode = "DDI_009"
)

// recoverableCodes lists the codes a stage may downgrade to a warning.
var recoverableCodes = map[ErrorCode]bool{
	ErrCodeParseFailure:           true,
	ErrCodeMissingFeatureVector:   true,
	ErrCodeMissingKnownDDIRecords: true,
	ErrCodeMissingSimilarity:      true,
	ErrCodeMalformedRecord:        true,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:      "internal error",
	ErrCodeBadRequest:    "bad request",
	ErrCodeNotFound:      "resource not found",
	ErrCodeValidation:    "validation failed",
	ErrCodeSerialization: "serialization failed",
	ErrCodeCacheError:    "cache error",
	ErrCodeStorageError:  "object storage error",
	ErrCodeMessageError:  "message publishing error",
	ErrCodeIO:            "file I/O error",

	ErrCodeMoleculeInvalidSMILES:       "invalid SMILES",
	ErrCodeMoleculeInvalidFormat:       "unsupported molecule format",
	ErrCodeMoleculeParsingFailed:       "failed to parse molecule",
	ErrCodeFingerprintGenerationFailed: "failed to generate fingerprint",
	ErrCodeSimilarityMetricUnsupported: "unsupported similarity metric",

	ErrCodeParseFailure:            "unparseable molecular structure",
	ErrCodeMissingFeatureVector:    "drug has no reduced feature vector",
	ErrCodeUnknownInteractionLabel: "interaction label has no sentence template",
	ErrCodeMissingKnownDDIRecords:  "no known DDI records for interaction type",
	ErrCodeMissingSimilarity:       "drug pair absent from similarity matrix",
	ErrCodeMalformedRecord:         "malformed input record",
	ErrCodeDimensionMismatch:       "dimension mismatch",
	ErrCodeArtifactNotFound:        "required artifact not found",
	ErrCodeModelError:              "classifier inference failed",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsRecoverable reports whether code marks a condition a stage skips with a
// warning rather than aborting on.
func IsRecoverable(code ErrorCode) bool {
	return recoverableCodes[code]
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
