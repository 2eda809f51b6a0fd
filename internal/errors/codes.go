// Package errors provides structured error handling for Recall.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (entry store, keyword index, meta file)
//   - 3XX: Validation errors (caller-supplied arguments)
//   - 4XX: Parse errors (front-matter, directives)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates collaborator I/O errors (stores, indexes, meta file).
	CategoryStorage Category = "STORAGE"
	// CategoryValidation indicates caller input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryParse indicates document parse errors (front-matter, directives).
	CategoryParse Category = "PARSE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the run can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStoreUnavailable = "ERR_201_STORE_UNAVAILABLE"
	ErrCodeStoreWrite       = "ERR_202_STORE_WRITE"
	ErrCodeStoreRead        = "ERR_203_STORE_READ"
	ErrCodeMetaCorrupt      = "ERR_204_META_CORRUPT"

	// Validation errors (300-399)
	ErrCodeInvalidInput    = "ERR_301_INVALID_INPUT"
	ErrCodeInvalidCategory = "ERR_302_INVALID_CATEGORY"
	ErrCodeInvalidPath     = "ERR_303_INVALID_PATH"
	ErrCodeContentTooLarge = "ERR_304_CONTENT_TOO_LARGE"

	// Parse errors (400-499)
	ErrCodeFrontMatter = "ERR_401_FRONT_MATTER"
	ErrCodeDirective   = "ERR_402_DIRECTIVE"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the category from the numeric range in the code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryValidation
	case '4':
		return CategoryParse
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity from the code.
// Parse errors are warnings: they never block an indexing run.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryParse:
		return SeverityWarning
	case CategoryConfig:
		return SeverityFatal
	default:
		return SeverityError
	}
}
