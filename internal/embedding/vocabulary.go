package embedding

// vocabulary is the fixed, ordered list of technical terms whose presence
// (and term frequency) forms the first len(vocabulary) dimensions of every
// embedding. Its order is part of the embedding's contract: changing it,
// adding to it, or removing from it changes the meaning of every previously
// stored vector and requires regenerating them all.
var vocabulary = []string{
	// languages and runtimes
	"go", "golang", "python", "javascript", "typescript", "rust", "java",
	"kotlin", "swift", "ruby", "php", "scala", "elixir", "erlang", "clojure",
	"haskell", "c", "cpp", "csharp", "bash", "shell", "sql", "html", "css",
	"wasm", "node", "deno", "bun",

	// frameworks and libraries
	"react", "vue", "angular", "svelte", "nextjs", "django", "flask",
	"fastapi", "rails", "spring", "express", "gin", "echo", "fiber",
	"cobra", "viper", "grpc", "graphql", "rest", "openapi", "protobuf",

	// databases and storage
	"postgresql", "postgres", "mysql", "sqlite", "mongodb", "redis",
	"cassandra", "dynamodb", "elasticsearch", "clickhouse", "timescaledb",
	"mariadb", "cockroachdb", "etcd", "consul", "zookeeper",

	// cloud and infra
	"aws", "gcp", "azure", "kubernetes", "docker", "terraform", "ansible",
	"helm", "istio", "envoy", "nginx", "apache", "caddy", "traefik",
	"lambda", "ec2", "s3", "cloudfront", "fargate", "ecs", "eks", "gke",

	// messaging and streaming
	"kafka", "rabbitmq", "nats", "sqs", "sns", "pubsub", "pulsar",
	"websocket", "sse", "mqtt",

	// auth and security
	"oauth", "oauth2", "oidc", "saml", "jwt", "sso", "mfa", "rbac", "abac",
	"tls", "mtls", "ssl", "hmac", "bcrypt", "argon2", "vault", "kms",

	// architecture and patterns
	"microservice", "monolith", "serverless", "eventdriven", "cqrs",
	"saga", "sidecar", "gateway", "proxy", "loadbalancer", "cache",
	"queue", "broker", "pipeline", "middleware", "adapter", "facade",
	"repository", "singleton", "factory", "observer", "decorator",

	// testing and quality
	"unittest", "integrationtest", "e2e", "mock", "stub", "fixture",
	"coverage", "regression", "fuzzing", "benchmark", "lint", "static",
	"typecheck", "ci", "cd", "pipeline",

	// concurrency and performance
	"goroutine", "channel", "mutex", "semaphore", "threadpool", "async",
	"await", "promise", "future", "concurrency", "parallelism",
	"throughput", "latency", "backpressure", "ratelimit", "retry",
	"backoff", "circuitbreaker", "timeout", "idempotent", "atomic",

	// data and formats
	"json", "yaml", "toml", "xml", "csv", "parquet", "avro", "protobuf",
	"base64", "utf8", "unicode", "regex", "schema", "migration", "index",
	"transaction", "replication", "sharding", "partition", "checksum",

	// version control and workflow
	"git", "github", "gitlab", "bitbucket", "branch", "commit", "merge",
	"rebase", "pullrequest", "changelog", "semver", "monorepo", "submodule",

	// observability
	"logging", "metrics", "tracing", "telemetry", "prometheus", "grafana",
	"datadog", "sentry", "opentelemetry", "alerting", "dashboard", "slo",
	"sla", "uptime", "incident", "postmortem",

	// ml and data
	"embedding", "vector", "tokenize", "inference", "model", "training",
	"llm", "prompt", "rag", "finetune", "classifier", "regression",

	// general software concepts
	"api", "sdk", "cli", "daemon", "service", "client", "server",
	"database", "config", "deployment", "environment", "staging",
	"production", "release", "rollback", "feature", "flag", "dependency",
	"package", "module", "library", "interface", "abstraction", "refactor",
	"convention", "decision", "architecture", "scalability", "reliability",
	"availability", "consistency", "durability", "isolation",
}

// vocabIndex maps a vocabulary term to its fixed dimension index.
var vocabIndex = buildVocabIndex()

func buildVocabIndex() map[string]int {
	idx := make(map[string]int, len(vocabulary))
	for i, term := range vocabulary {
		idx[term] = i
	}
	return idx
}

// commonWords is a short fixed list of terms considered so frequent they
// carry little discriminating weight (idf = 0.5 rather than 1.0 or 2.0).
var commonWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "to": true,
	"of": true, "in": true, "on": true, "for": true, "with": true,
	"and": true, "or": true, "but": true, "it": true, "this": true,
	"that": true, "we": true, "i": true, "you": true, "use": true,
	"uses": true, "used": true, "using": true, "will": true, "can": true,
	"should": true, "would": true, "has": true, "have": true, "had": true,
}
