package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ChromaEndpoint        string
	ChromaCollection      string
	RetrievalLimit        int
	Neo4jURI              string
	Neo4jUser             string
	Neo4jPassword         string
	Neo4jDatabase         string
	RedisAddr             string
	RedisPassword         string
	CacheTTLSeconds       int
	DatabaseURL           string
	ModelPath             string
	ClaudeAPIKey          string
	ClaudeModel           string
	SlackWebhookURL       string
	APIToken              string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ChromaEndpoint, "chroma-endpoint", "", "Chroma endpoint for similarity search (empty = similarity search disabled)")
	fs.StringVar(&c.ChromaCollection, "chroma-collection", "service_requests", "Chroma collection holding embedded historical requests")
	fs.IntVar(&c.RetrievalLimit, "retrieval-limit", 5, "max results per retrieval source (1..50)")
	fs.StringVar(&c.Neo4jURI, "neo4j-uri", "", "Neo4j URI for the knowledge graph (empty = graph queries disabled)")
	fs.StringVar(&c.Neo4jUser, "neo4j-user", "neo4j", "Neo4j username")
	fs.StringVar(&c.Neo4jPassword, "neo4j-password", "", "Neo4j password")
	fs.StringVar(&c.Neo4jDatabase, "neo4j-database", "neo4j", "Neo4j database name")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis address for the result cache (empty = caching disabled)")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&c.CacheTTLSeconds, "cache-ttl-seconds", 3600, "result cache TTL in seconds (1..86400)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.ModelPath, "model-path", "", "path to the trained regression model artifact (empty = heuristic fallback)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude LLM provider (empty = keyword fallback only)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-5", "Claude model to use")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.RetrievalLimit <= 0 || c.RetrievalLimit > 50 {
		errs = append(errs, fmt.Errorf("invalid RETRIEVAL_LIMIT %d (must be 1..50)", c.RetrievalLimit))
	}

	if c.CacheTTLSeconds <= 0 || c.CacheTTLSeconds > 86400 {
		errs = append(errs, fmt.Errorf("invalid CACHE_TTL_SECONDS %d (must be 1..86400)", c.CacheTTLSeconds))
	}

	// Collection name is required whenever similarity search is on
	if c.ChromaEndpoint != "" && c.ChromaCollection == "" {
		errs = append(errs, errors.New("CHROMA_COLLECTION is required when CHROMA_ENDPOINT is set"))
	}

	// Graph credentials are required whenever graph queries are on
	if c.Neo4jURI != "" {
		if c.Neo4jUser == "" {
			errs = append(errs, errors.New("NEO4J_USER is required when NEO4J_URI is set"))
		}
		if c.Neo4jDatabase == "" {
			errs = append(errs, errors.New("NEO4J_DATABASE is required when NEO4J_URI is set"))
		}
	}

	// Model name is required whenever the LLM provider is on
	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
