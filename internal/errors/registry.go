package errors

type template struct {
	Category Category
	Message  string
	Detail   string
}

var registry = map[string]template{
	// Configuration (Q100-Q149)
	"Q100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "qaglue looks for qaglue.json, qaglue.yaml or qaglue.yml in the working directory.",
	},
	"Q101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
	},
	"Q102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// Command line (Q150-Q199)
	"Q150": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
	"Q151": {
		Category: CategoryCLI,
		Message:  "Cannot read input file",
	},

	// Backend transport (Q200-Q249)
	"Q200": {
		Category: CategoryTransport,
		Message:  "Vote request failed",
		Detail:   "The backend did not accept the vote.",
	},
	"Q201": {
		Category: CategoryTransport,
		Message:  "Server failed to start",
	},

	// Storage (Q250-Q299)
	"Q250": {
		Category: CategoryStorage,
		Message:  "Cannot open vote store",
	},
}
