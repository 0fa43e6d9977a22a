package errors

// RegistryEntry provides detailed information about an error code.
type RegistryEntry struct {
	Code        ErrorCode
	Title       string
	Description string
	HelpURL     string
}

// errorRegistry maps error codes to their detailed information.
var errorRegistry = map[ErrorCode]*RegistryEntry{
	ErrCodeKeyNotFound: {
		Code:        ErrCodeKeyNotFound,
		Title:       "Key Not Found",
		Description: "The key does not exist, or was evicted because it expired.",
		HelpURL:     "https://github.com/akavache-go/akavache#expiration",
	},
	ErrCodeDisposed: {
		Code:        ErrCodeDisposed,
		Title:       "Cache Disposed",
		Description: "The cache instance has been shut down and no longer accepts operations.",
		HelpURL:     "https://github.com/akavache-go/akavache#lifecycle",
	},
	ErrCodeArgumentInvalid: {
		Code:        ErrCodeArgumentInvalid,
		Title:       "Invalid Argument",
		Description: "A required key or payload was empty or nil.",
	},
	ErrCodeSerializationFailed: {
		Code:        ErrCodeSerializationFailed,
		Title:       "Serialization Failed",
		Description: "The typed value could not be encoded to, or decoded from, its stored JSON payload.",
		HelpURL:     "https://github.com/akavache-go/akavache#typed-objects",
	},
	ErrCodeBackendFailure: {
		Code:        ErrCodeBackendFailure,
		Title:       "Backend Failure",
		Description: "The underlying SQLite store returned an error.",
	},
	ErrCodeProtectionFailed: {
		Code:        ErrCodeProtectionFailed,
		Title:       "Protection Failed",
		Description: "The encrypted cache's protect/unprotect transform failed.",
		HelpURL:     "https://github.com/akavache-go/akavache#encrypted-cache",
	},
	ErrCodeSchemaMigrationFailed: {
		Code:        ErrCodeSchemaMigrationFailed,
		Title:       "Schema Migration Failed",
		Description: "The v1-to-v2 schema migration could not complete.",
	},
	ErrCodeSchemaVersionUnknown: {
		Code:        ErrCodeSchemaVersionUnknown,
		Title:       "Unknown Schema Version",
		Description: "The cache file reports a schema version newer than this build understands.",
	},
	ErrCodeInternalUnexpected: {
		Code:        ErrCodeInternalUnexpected,
		Title:       "Unexpected Internal Error",
		Description: "An unclassified error occurred.",
	},
}

// GetRegistryEntry retrieves detailed information for an error code.
func GetRegistryEntry(code ErrorCode) *RegistryEntry {
	entry, ok := errorRegistry[code]
	if !ok {
		return nil
	}
	return entry
}
