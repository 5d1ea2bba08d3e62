package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryConfig,
		Message:  "config file not found",
		Detail:   "The gentleman.json configuration file could not be located. The CLI looks in the current directory unless --config is given.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "config file is not valid JSON",
		Detail:   "gentleman.json exists but could not be parsed.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "invalid persistence configuration",
		Detail:   "Persistence mode must be \"none\", \"file\" (with a path), or \"s3\" (with a bucket).",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "invalid listen address",
		Detail:   "The inspector address must be host:port.",
	},

	// ============================================
	// Persistence Errors (E200-E299)
	// ============================================

	"E201": {
		Category: CategoryPersist,
		Message:  "snapshot load failed",
		Detail:   "The saved state snapshot could not be read from the configured store.",
	},
	"E202": {
		Category: CategoryPersist,
		Message:  "snapshot save failed",
		Detail:   "The state snapshot could not be written to the configured store.",
	},

	// ============================================
	// CLI Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryCLI,
		Message:  "inspector server failed",
		Detail:   "The inspector HTTP server stopped with an error.",
	},
}
