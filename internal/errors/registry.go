package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (C001-C099)
	"C001": {
		Category:   CategoryConfig,
		Message:    "Invalid listen address",
		Suggestion: "Set CMSPORTAL_SERVER_ADDR to host:port, for example :8080.",
	},
	"C002": {
		Category:   CategoryConfig,
		Message:    "Invalid backend API URL",
		Suggestion: "Set CMSPORTAL_API_BASE_URL to the absolute URL of the backend.",
	},
	"C003": {
		Category:   CategoryConfig,
		Message:    "Unknown preference backend",
		Suggestion: "Use one of memory, sql or s3 for CMSPORTAL_PREFS_BACKEND.",
	},
	"C004": {
		Category:   CategoryConfig,
		Message:    "Incomplete preference backend settings",
		Suggestion: "The sql backend needs a driver and DSN; the s3 backend needs a bucket.",
	},
	"C005": {
		Category:   CategoryConfig,
		Message:    "Invalid log level",
		Suggestion: "Use debug, info, warn or error.",
	},
	"C006": {
		Category:   CategoryConfig,
		Message:    "Could not load environment file",
		Suggestion: "Check the syntax of the .env file or remove it.",
	},
	"C007": {
		Category:   CategoryConfig,
		Message:    "Local authentication enabled without a signing secret",
		Suggestion: "Set CMSPORTAL_AUTH_SECRET or disable CMSPORTAL_AUTH_LOCAL.",
	},

	// Storage (S001-S099)
	"S001": {
		Category:   CategoryStorage,
		Message:    "Could not open database",
		Suggestion: "Check the DSN and that the database is reachable.",
	},
	"S002": {
		Category:   CategoryStorage,
		Message:    "Could not load AWS configuration",
		Suggestion: "Check AWS credentials and region settings.",
	},

	// Runtime (R001-R099)
	"R001": {
		Category: CategoryRuntime,
		Message:  "Server failed",
	},
}
