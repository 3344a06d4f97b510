package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"nust-bites/logger"
	"nust-bites/models"
)

// Configuration is read from the environment, optionally seeded by a .env file.
type Configuration struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	GinMode        string        `env:"GIN_MODE" envDefault:"debug"`
	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"nust_bites.db"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"nust_bites_dev_secret"`
	Timezone       string        `env:"TIMEZONE" envDefault:"Asia/Karachi"`
	OSRMURL        string        `env:"OSRM_URL" envDefault:"https://router.project-osrm.org"`
	RoutingTimeout time.Duration `env:"ROUTING_TIMEOUT" envDefault:"5s"`

	// Optional; when set, order numbers come from a MongoDB counter collection.
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"nust_bites"`

	UploadDir   string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB" envDefault:"5"`

	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"2m"`
	CacheSize int           `env:"CACHE_SIZE" envDefault:"256"`

	// Seeded on startup when both are set; registration never grants admin.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"NUST Bites <no-reply@nustbites.pk>"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogFile   string `env:"LOG_FILE" envDefault:"logs/app.log"`
}

var (
	App *Configuration
	DB  *gorm.DB
)

// JWTSecret used to sign tokens; replaced by Load.
var JWTSecret = []byte("nust_bites_dev_secret")

// Load reads .env (if present) and the environment into App.
func Load() (*Configuration, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("no .env file loaded: %v\n", err)
	}
	cfg := &Configuration{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	App = cfg
	JWTSecret = []byte(cfg.JWTSecret)
	return cfg, nil
}

// Logger converts the logging keys into a logger.Config.
func (c *Configuration) Logger() logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	lc.Output = c.LogOutput
	lc.File = c.LogFile
	return lc
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Configuration) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }

// OpenDatabase opens the SQLite file at path and migrates every model.
func OpenDatabase(path string) (*gorm.DB, error) {
	// Write transactions take the lock at BEGIN and wait out busy_timeout.
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         newGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.Settings{},
		&models.Sequence{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// gormWriter sends gorm's slow-query and error lines to the application log.
type gormWriter struct{ *logrus.Entry }

func (w gormWriter) Printf(format string, args ...interface{}) { w.Warnf(format, args...) }

func newGormLogger() gormlogger.Interface {
	return gormlogger.New(gormWriter{logger.Get().WithField("component", "gorm")}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// InitDB connects the package-level DB.
func InitDB() {
	db, err := OpenDatabase(App.DatabasePath)
	if err != nil {
		logger.Get().WithError(err).Fatal("Failed to connect to database")
	}
	DB = db
	logger.Get().Info("Database connected and migrated successfully")
}
