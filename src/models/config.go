package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	Storage  MStorageConfig  `yaml:"storage"`
	Network  MNetworkConfig  `yaml:"network"`
	Upstream MUpstreamConfig `yaml:"upstream"`
	Edge     MEdgeConfig     `yaml:"edge"`
	Watch    []MWatchConfig  `yaml:"watch"`
	Ranges   []string        `yaml:"ranges"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionHours     int    `yaml:"retention_hours"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MUpstreamConfig struct {
	Providers []MProviderConfig `yaml:"providers"`
}

type MProviderConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` // Optional
}

// MEdgeConfig is the dashboard side's view of the edge service.
type MEdgeConfig struct {
	BaseURL      string `yaml:"base_url"`
	WebsocketURL string `yaml:"websocket_url"`
}

// MWatchConfig is one dashboard watchlist entry.
type MWatchConfig struct {
	AssetID  string `yaml:"asset_id"`
	Range    string `yaml:"range"`
	Currency string `yaml:"currency"`
}
