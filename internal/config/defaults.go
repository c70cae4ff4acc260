package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxAttempts == 0 {
		cfg.Embedding.MaxAttempts = 3
	}
	if cfg.Embedding.RetryBackoffMS == 0 {
		cfg.Embedding.RetryBackoffMS = 5000
	}
	if cfg.Embedding.RequestIntervalMS == 0 {
		cfg.Embedding.RequestIntervalMS = 200
	}
	if cfg.Embedding.RequestTimeoutMS == 0 {
		cfg.Embedding.RequestTimeoutMS = 30000
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = 500
	}
	if cfg.Pipeline.ChunkOverlap == 0 {
		cfg.Pipeline.ChunkOverlap = 100
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 3
	}
	if cfg.Pipeline.MinTextLength == 0 {
		cfg.Pipeline.MinTextLength = 50
	}
	if cfg.Pipeline.MaxInputLength == 0 {
		cfg.Pipeline.MaxInputLength = 2000
	}
}
