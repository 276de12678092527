package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// Well-known error codes.
const (
	CodeConfigNotFound       = "E101"
	CodeConfigParse          = "E102"
	CodeConfigInvalid        = "E103"
	CodeMissingMergeStrategy = "E110"
	CodeInvalidPrintURLs     = "E111"
	CodePortUnavailable      = "E201"
	CodePortExhaustion       = "E202"
	CodeBindFailed           = "E301"
	CodeServerInit           = "E302"
	CodeHookFailed           = "E401"
	CodeRestartFailed        = "E501"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E101-E199)
	// ============================================

	CodeConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No rsbuild.json was found in the project directory or any parent directory.",
	},
	CodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Failed to parse configuration",
		Detail:   "The configuration file could not be read or is not valid JSON.",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A resolved configuration field failed validation.",
	},
	CodeMissingMergeStrategy: {
		Category: CategoryConfig,
		Message:  "Missing merge strategy",
		Detail:   "Merge was called without a merge function. Pass config.DeepMerge or a custom MergeFunc.",
	},
	CodeInvalidPrintURLs: {
		Category: CategoryConfig,
		Message:  "Invalid printUrls result",
		Detail:   "The printUrls transform must return a URL list. Returning nothing is a programming error.",
	},

	// ============================================
	// Port Errors (E201-E299)
	// ============================================

	CodePortUnavailable: {
		Category: CategoryPort,
		Message:  "Port is not available",
		Detail:   "The requested port is already in use and strictPort is enabled, so no fallback port was tried.",
	},
	CodePortExhaustion: {
		Category: CategoryPort,
		Message:  "No free port found",
		Detail:   "No free port was found within the fallback scan range above the requested port.",
	},

	// ============================================
	// Server Errors (E301-E399)
	// ============================================

	CodeBindFailed: {
		Category: CategoryServer,
		Message:  "Failed to bind dev server",
		Detail:   "The underlying server failed to listen on the resolved address. Another process may have claimed the port, or binding may require elevated permissions.",
	},
	CodeServerInit: {
		Category: CategoryServer,
		Message:  "Dev server initialization failed",
		Detail:   "The injected server factory or its Init step returned an error before the server could listen.",
	},

	// ============================================
	// Hook Errors (E401-E499)
	// ============================================

	CodeHookFailed: {
		Category: CategoryHook,
		Message:  "Lifecycle hook failed",
		Detail:   "A registered hook callback returned an error. Remaining callbacks of that hook were not run.",
	},

	// ============================================
	// Restart Errors (E501-E599)
	// ============================================

	CodeRestartFailed: {
		Category: CategoryRestart,
		Message:  "Restart failed",
		Detail:   "Re-resolving configuration after a watched file change failed. The watch loop stays alive and will retry on the next change.",
	},
}
