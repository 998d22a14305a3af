package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		RetrievalLimit:        5,
		CacheTTLSeconds:       3600,
		ChromaEndpoint:        "http://localhost:8000",
		ChromaCollection:      "service_requests",
		Neo4jURI:              "bolt://localhost:7687",
		Neo4jUser:             "neo4j",
		Neo4jDatabase:         "neo4j",
		ClaudeAPIKey:          "sk-test-key",
		ClaudeModel:           "claude-sonnet-4-5",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.ChromaCollection != "service_requests" {
		t.Errorf("ChromaCollection = %q, want service_requests", c.ChromaCollection)
	}
	if c.RetrievalLimit != 5 {
		t.Errorf("RetrievalLimit = %d, want 5", c.RetrievalLimit)
	}
	if c.CacheTTLSeconds != 3600 {
		t.Errorf("CacheTTLSeconds = %d, want 3600", c.CacheTTLSeconds)
	}
	if c.ClaudeModel != "claude-sonnet-4-5" {
		t.Errorf("ClaudeModel = %q, want claude-sonnet-4-5", c.ClaudeModel)
	}
	if c.Neo4jUser != "neo4j" || c.Neo4jDatabase != "neo4j" {
		t.Errorf("Neo4j defaults = %q/%q, want neo4j/neo4j", c.Neo4jUser, c.Neo4jDatabase)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-chroma-endpoint", "http://chroma:8000",
		"-chroma-collection", "requests_v2",
		"-neo4j-uri", "bolt://graph:7687",
		"-redis-addr", "redis:6379",
		"-database-url", "postgres://svc@db/servicesense",
		"-model-path", "/var/lib/servicesense/model.json",
		"-claude-api-key", "sk-override",
		"-api-token", "secret",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.ChromaEndpoint != "http://chroma:8000" {
		t.Errorf("ChromaEndpoint = %q", c.ChromaEndpoint)
	}
	if c.ChromaCollection != "requests_v2" {
		t.Errorf("ChromaCollection = %q", c.ChromaCollection)
	}
	if c.Neo4jURI != "bolt://graph:7687" {
		t.Errorf("Neo4jURI = %q", c.Neo4jURI)
	}
	if c.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q", c.RedisAddr)
	}
	if c.DatabaseURL != "postgres://svc@db/servicesense" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
	if c.ModelPath != "/var/lib/servicesense/model.json" {
		t.Errorf("ModelPath = %q", c.ModelPath)
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q", c.ClaudeAPIKey)
	}
	if c.APIToken != "secret" {
		t.Errorf("APIToken = %q", c.APIToken)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "everything optional off",
			mutate: func(c *Config) {
				c.ChromaEndpoint = ""
				c.Neo4jURI = ""
				c.RedisAddr = ""
				c.ClaudeAPIKey = ""
				c.ClaudeModel = ""
			},
			wantErr: false,
		},
		{
			name:      "drain zero",
			mutate:    func(c *Config) { c.DrainSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			mutate:    func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 302 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget equals drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds },
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.APIPort = 0 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			mutate:    func(c *Config) { c.APIPort = 65536 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "retrieval limit zero",
			mutate:    func(c *Config) { c.RetrievalLimit = 0 },
			wantErr:   true,
			errSubstr: []string{"RETRIEVAL_LIMIT"},
		},
		{
			name:      "cache ttl above max",
			mutate:    func(c *Config) { c.CacheTTLSeconds = 86401 },
			wantErr:   true,
			errSubstr: []string{"CACHE_TTL_SECONDS"},
		},
		{
			name:      "chroma endpoint without collection",
			mutate:    func(c *Config) { c.ChromaCollection = "" },
			wantErr:   true,
			errSubstr: []string{"CHROMA_COLLECTION"},
		},
		{
			name:      "neo4j uri without user",
			mutate:    func(c *Config) { c.Neo4jUser = "" },
			wantErr:   true,
			errSubstr: []string{"NEO4J_USER"},
		},
		{
			name:      "neo4j uri without database",
			mutate:    func(c *Config) { c.Neo4jDatabase = "" },
			wantErr:   true,
			errSubstr: []string{"NEO4J_DATABASE"},
		},
		{
			name:      "claude key without model",
			mutate:    func(c *Config) { c.ClaudeModel = "" },
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		{
			name: "all numeric fields invalid",
			mutate: func(c *Config) {
				c.DrainSeconds = 0
				c.ShutdownBudgetSeconds = 0
				c.APIPort = 0
				c.RetrievalLimit = -1
				c.CacheTTLSeconds = 0
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "RETRIEVAL_LIMIT", "CACHE_TTL_SECONDS"},
		},
		{
			name: "extreme negative values",
			mutate: func(c *Config) {
				c.DrainSeconds = math.MinInt32
				c.ShutdownBudgetSeconds = math.MinInt32
				c.APIPort = math.MinInt32
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validBase()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, limit, ttl int
	}{
		{60, 90, 8080, 5, 3600},
		{1, 2, 1, 1, 1},
		{299, 300, 65535, 50, 86400},
		{0, 0, 0, 0, 0},
		{-1, -1, -1, -1, -1},
		{300, 300, 65535, 5, 3600},
		{301, 302, 65536, 51, 86401},
		{150, 100, 8080, 5, 3600},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.limit, s.ttl)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, limit, ttl int) {
		c := validBase()
		c.DrainSeconds = drain
		c.ShutdownBudgetSeconds = budget
		c.APIPort = port
		c.RetrievalLimit = limit
		c.CacheTTLSeconds = ttl
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		limitOK := limit >= 1 && limit <= 50
		ttlOK := ttl >= 1 && ttl <= 86400
		crossOK := budget > drain

		allValid := drainOK && budgetOK && portOK && limitOK && ttlOK && crossOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
