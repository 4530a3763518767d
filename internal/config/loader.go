package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Media    MediaConfig    `mapstructure:"media"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite". SQLite keeps the service
	// single-binary for small archives.
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type SecurityConfig struct {
	// EncryptionKey protects stored MTProto session strings.
	EncryptionKey string `mapstructure:"encryption_key"`
	APIToken      string `mapstructure:"api_token"`
}

type TelegramConfig struct {
	// BridgeURL points at the MTProto bridge sidecar the gateway talks to.
	BridgeURL string        `mapstructure:"bridge_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	MessagePageSize int `mapstructure:"message_page_size"`
	MaxChats        int `mapstructure:"max_chats"`
	LogTailLines    int `mapstructure:"log_tail_lines"`
}

type MediaConfig struct {
	StorageDir string `mapstructure:"storage_dir"`
}

type BackupConfig struct {
	Dir        string `mapstructure:"dir"`
	SFTPHost   string `mapstructure:"sftp_host"`
	SFTPPort   int    `mapstructure:"sftp_port"`
	SFTPUser   string `mapstructure:"sftp_user"`
	SFTPKey    string `mapstructure:"sftp_key"`
	SFTPDir    string `mapstructure:"sftp_dir"`
	SFTPPasswd string `mapstructure:"sftp_password"`
}

func (b *BackupConfig) UploadEnabled() bool {
	return b.SFTPHost != ""
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("TGVAULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.sqlite_path", "tgvault.db")
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("logger.output_paths", []string{"stdout"})
	viper.SetDefault("logger.error_output_paths", []string{"stderr"})
	viper.SetDefault("telegram.timeout", 60*time.Second)
	viper.SetDefault("sync.message_page_size", 100)
	viper.SetDefault("sync.log_tail_lines", 500)
	viper.SetDefault("media.storage_dir", "media")
	viper.SetDefault("backup.dir", "backups")
	viper.SetDefault("backup.sftp_port", 22)
}
