package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Configuration Errors (E100-E199)
	// ============================================

	"E100": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "The configuration file given with --config does not exist.",
		Suggestion: "Check the path, or omit --config to use staticrouter.yaml in the working directory.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The configuration file could not be parsed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "Invalid base URL",
		Detail:     "base_url must be an absolute http or https URL.",
		Suggestion: `Use a value like "https://example.com".`,
	},
	"E104": {
		Category:   CategoryConfig,
		Message:    "Incomplete S3 configuration",
		Detail:     "Publishing to S3 needs a bucket and a region.",
		Suggestion: "Set s3.bucket and s3.region, or leave s3.bucket empty to write to the output directory.",
	},

	// ============================================
	// Prerender Errors (E200-E299)
	// ============================================

	"E200": {
		Category: CategoryPrerender,
		Message:  "Prerender failed",
		Detail:   "A page could not be rendered or written.",
	},
	"E201": {
		Category:   CategoryPrerender,
		Message:    "No pages to prerender",
		Detail:     "Neither the configuration nor the site provides URLs.",
		Suggestion: "List the paths to generate under urls.",
	},
	"E202": {
		Category: CategoryPrerender,
		Message:  "Site data could not be loaded",
		Detail:   "The site data file is missing or is not valid YAML.",
	},
	"E203": {
		Category: CategoryPrerender,
		Message:  "Publishing failed",
		Detail:   "The output could not be written to its destination.",
	},

	// ============================================
	// Server Errors (E300-E399)
	// ============================================

	"E300": {
		Category:   CategoryServer,
		Message:    "Output directory not found",
		Detail:     "The server serves prerendered output, which does not exist yet.",
		Suggestion: "Run `staticrouter prerender` first.",
	},
	"E301": {
		Category:   CategoryServer,
		Message:    "Server failed",
		Suggestion: "Check that the address is free and valid.",
	},
	"E302": {
		Category:   CategoryServer,
		Message:    "Page could not be loaded",
		Detail:     "The browser could not fetch or parse a prerendered document.",
		Suggestion: "Check that the server is running and serves prerendered output.",
	},
}

// Codes returns all registered error codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// Lookup returns the template for an error code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
