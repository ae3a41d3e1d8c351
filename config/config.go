package config

import "time"

// Config carries every environment-driven setting. The host application
// owns loading it (ectoenv, flags, whatever it prefers); this package only
// declares the shape and defaults.
type Config struct {
	AppName    string `env:"APP_NAME" env-default:"tendril"`
	ProjectID  string `env:"PROJECT_ID" env-default:""`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	// PostgreSQL (audit trail)
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                int           `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"tendril"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`

	// Graph Database (Neo4j or Memgraph)
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka Producer (notification hook; leave brokers empty to disable)
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:""`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"link-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Matching
	MatchMinSimilarity      float64 `env:"MATCH_MIN_SIMILARITY" env-default:"0.70"`
	MatchMidSimilarityBand  float64 `env:"MATCH_MID_SIMILARITY_BAND" env-default:"0.80"`
	MatchHighSimilarityBand float64 `env:"MATCH_HIGH_SIMILARITY_BAND" env-default:"0.90"`
	MatchMaxResults         int     `env:"MATCH_MAX_RESULTS" env-default:"100"`
	PhoneDefaultRegion      string  `env:"PHONE_DEFAULT_REGION" env-default:"US"`
}
