package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del proceso (lectura vía Viper desde env y opcionalmente archivo).
// Se lee una sola vez al arrancar y se pasa a cada colaborador en su constructor.
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Cavali   CavaliConfig
	Archive  ArchiveConfig
	Trello   TrelloConfig
	Mail     MailConfig
	Pipeline PipelineConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT para la API de consulta.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CavaliConfig credenciales y endpoints de la API Factrack de Cavali.
type CavaliConfig struct {
	ClientID       string
	ClientSecret   string
	Scope          string
	TokenURL       string
	APIKey         string
	BlockURL       string // envío del lote para bloqueo
	StatusURL      string // consulta de estado del proceso
	BatchSize      int
	Workers        int
	TokenTimeout   time.Duration
	SubmitTimeout  time.Duration
	StatusTimeout  time.Duration
	StatusAttempts int
	StatusInterval time.Duration
}

// ArchiveConfig destino del archivo de documentos de cada operación.
type ArchiveConfig struct {
	Root    string // directorio base (disco local o bucket montado)
	BaseURL string // prefijo público con el que se publica Root
}

// TrelloConfig credenciales del tablero de operaciones.
type TrelloConfig struct {
	BaseURL  string
	APIKey   string
	APIToken string
	ListID   string
	LabelIDs string // ids separados por coma, tal como los espera Trello
	Timeout  time.Duration
}

// MailConfig servidor SMTP y destinatario del correo de confirmación.
type MailConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	From      string
	Recipient string
	Subject   string
	Timeout   time.Duration
}

// PipelineConfig parámetros del procesamiento de operaciones.
type PipelineConfig struct {
	TempDir         string
	DefaultInitials string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, CAVALI_CLIENT_ID, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "operaciones-factoring"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "factoring"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "operaciones-factoring"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Cavali: CavaliConfig{
			ClientID:       getString(v, "CAVALI_CLIENT_ID", ""),
			ClientSecret:   getString(v, "CAVALI_CLIENT_SECRET", ""),
			Scope:          getString(v, "CAVALI_SCOPE", ""),
			TokenURL:       getString(v, "CAVALI_TOKEN_URL", ""),
			APIKey:         getString(v, "CAVALI_API_KEY", ""),
			BlockURL:       getString(v, "CAVALI_BLOCK_URL", ""),
			StatusURL:      getString(v, "CAVALI_STATUS_URL", ""),
			BatchSize:      getInt(v, "CAVALI_BATCH_SIZE", 30),
			Workers:        getInt(v, "CAVALI_WORKERS", 4),
			TokenTimeout:   getSeconds(v, "CAVALI_TOKEN_TIMEOUT_SECONDS", 30),
			SubmitTimeout:  getSeconds(v, "CAVALI_SUBMIT_TIMEOUT_SECONDS", 60),
			StatusTimeout:  getSeconds(v, "CAVALI_STATUS_TIMEOUT_SECONDS", 30),
			StatusAttempts: getInt(v, "CAVALI_STATUS_ATTEMPTS", 1),
			StatusInterval: getSeconds(v, "CAVALI_STATUS_INTERVAL_SECONDS", 5),
		},
		Archive: ArchiveConfig{
			Root:    getString(v, "ARCHIVE_ROOT", "./archive"),
			BaseURL: getString(v, "ARCHIVE_BASE_URL", "file://archive"),
		},
		Trello: TrelloConfig{
			BaseURL:  getString(v, "TRELLO_BASE_URL", "https://api.trello.com/1"),
			APIKey:   getString(v, "TRELLO_API_KEY", ""),
			APIToken: getString(v, "TRELLO_API_TOKEN", ""),
			ListID:   getString(v, "TRELLO_LIST_ID", ""),
			LabelIDs: getString(v, "TRELLO_LABEL_IDS", ""),
			Timeout:  getSeconds(v, "TRELLO_TIMEOUT_SECONDS", 30),
		},
		Mail: MailConfig{
			Host:      getString(v, "SMTP_HOST", "localhost"),
			Port:      getInt(v, "SMTP_PORT", 587),
			User:      getString(v, "SMTP_USER", ""),
			Password:  getString(v, "SMTP_PASSWORD", ""),
			From:      getString(v, "MAIL_FROM", ""),
			Recipient: getString(v, "MAIL_RECIPIENT", ""),
			Subject:   getString(v, "MAIL_SUBJECT", "Confirmación de Facturas Negociables"),
			Timeout:   getSeconds(v, "MAIL_TIMEOUT_SECONDS", 60),
		},
		Pipeline: PipelineConfig{
			TempDir:         getString(v, "PIPELINE_TEMP_DIR", "/tmp"),
			DefaultInitials: getString(v, "PIPELINE_DEFAULT_INITIALS", "CE"),
		},
	}

	if cfg.Cavali.BatchSize <= 0 {
		return nil, fmt.Errorf("config: CAVALI_BATCH_SIZE debe ser mayor que cero")
	}
	if cfg.Cavali.Workers <= 0 {
		cfg.Cavali.Workers = 1
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

// getSeconds lee un entero en segundos y lo devuelve como time.Duration.
func getSeconds(v *viper.Viper, key string, def int) time.Duration {
	return time.Duration(getInt(v, key, def)) * time.Second
}
