package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata" // zone names must resolve on slim images

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ItalyMessageTypes is the number of Italian message types (MSG1..MSG13).
const ItalyMessageTypes = 13

type GatewayAPIConfig struct {
	Addr         string        `envconfig:"API_ADDR"          default:":8081"`
	ReadTimeout  time.Duration `envconfig:"API_READ_TIMEOUT"  default:"10s"`
	WriteTimeout time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"90s"` // sync CN lookups block for up to the CN timeout
	IdleTimeout  time.Duration `envconfig:"API_IDLE_TIMEOUT"  default:"60s"`

	// user:bcrypt-hash pairs, comma separated
	BasicAuthUsers map[string]string `envconfig:"API_BASIC_AUTH_USERS"`
	MaxUploadBytes int64             `envconfig:"API_MAX_UPLOAD_BYTES" default:"5242880"`
}

// Config holds the overall application configuration.
type Config struct {
	DatabaseURL        string        `envconfig:"DATABASE_URL"         required:"true"`
	LogLevel           string        `envconfig:"LOG_LEVEL"            default:"info"`
	RedisURL           string        `envconfig:"REDIS_URL"` // empty selects the in-process lease table
	TimeZone           string        `envconfig:"TIME_ZONE"            default:"Europe/Madrid"`
	IgnoreWorkingHours bool          `envconfig:"IGNORE_WORKING_HOURS" default:"false"`
	NationalHolidays   []string      `envconfig:"NATIONAL_HOLIDAYS"`
	JitterWindow       time.Duration `envconfig:"JITTER_WINDOW"        default:"5m"`
	MaxRetries         int32         `envconfig:"MAX_RETRIES"          default:"3"`
	AlertRecipient     string        `envconfig:"OPERATOR_ALERT_RECIPIENT" default:"mnp-operations"`
	CN                 CNConfig
	Spain              SpainScheduleConfig
	Italy              ItalyConfig
	BSS                BSSConfig
	WorkerConfig       WorkerConfig
	GatewayAPI         GatewayAPIConfig
}

// CNConfig describes the Spanish Central Node (reached through Apigee).
type CNConfig struct {
	AccessURL      string        `envconfig:"APIGEE_ACCESS_URL"        required:"true"`
	PortabilityURL string        `envconfig:"APIGEE_PORTABILITY_URL"   required:"true"`
	PortOutURL     string        `envconfig:"APIGEE_PORT_OUT_URL"      required:"true"`
	BoletinURL     string        `envconfig:"APIGEE_BOLETIN_URL"`
	APIKey         string        `envconfig:"APIGEE_API_KEY"           required:"true"`
	Username       string        `envconfig:"APIGEE_USERNAME"          required:"true"`
	AccessCode     string        `envconfig:"APIGEE_ACCESS_CODE"       required:"true"`
	OperatorCode   string        `envconfig:"APIGEE_OPERATOR_CODE"     required:"true"`
	QueryTimeout   time.Duration `envconfig:"APIGEE_API_QUERY_TIMEOUT" default:"30s"`
	SSLVerify      bool          `envconfig:"SSL_VERIFICATION"         default:"true"`
	RateLimit      float64       `envconfig:"CN_RATE_LIMIT"            default:"10"`
	RateBurst      int           `envconfig:"CN_RATE_BURST"            default:"5"`

	// Circuit breaker
	BreakerFailures int           `envconfig:"CN_BREAKER_FAILURES"  default:"5"`
	BreakerTimeout  time.Duration `envconfig:"CN_BREAKER_TIMEOUT"   default:"30s"`
	BreakerSuccess  int           `envconfig:"CN_BREAKER_SUCCESSES" default:"2"`
}

// SpainScheduleConfig holds the two working windows used for every Spanish operation.
type SpainScheduleConfig struct {
	WorkingDays    string `envconfig:"SPAIN_WORKING_DAYS"     default:"MON-FRI"`
	MorningStart   string `envconfig:"SPAIN_MORNING_START"    default:"08:00"`
	MorningStop    string `envconfig:"SPAIN_MORNING_STOP"     default:"14:00"`
	AfternoonStart string `envconfig:"SPAIN_AFTERNOON_START"  default:"15:00"`
	AfternoonStop  string `envconfig:"SPAIN_AFTERNOON_STOP"   default:"20:00"`
}

// ItalyWindow is the allowed window for one Italian message type.
type ItalyWindow struct {
	Days  string
	Start string
	Stop  string
}

type ItalyConfig struct {
	TimeZone          string        `envconfig:"ITA_TIME_ZONE"          default:"Europe/Rome"`
	OperatorCode      string        `envconfig:"ITA_OPERATOR_CODE"      default:"LMIT"`
	OutboundDir       string        `envconfig:"ITA_OUTBOUND_DIR"       default:"./outbound"`
	ActionInterval    time.Duration `envconfig:"ITA_ACTION_INTERVAL"    default:"30s"`
	ActionBatchSize   int           `envconfig:"ITA_ACTION_BATCH_SIZE"  default:"50"`
	ActionMaxAttempts int32         `envconfig:"ITA_ACTION_MAX_ATTEMPTS" default:"3"`
	ActionTTL         time.Duration `envconfig:"ITA_ACTION_TTL"         default:"72h"`
	ActionClaimTTL    time.Duration `envconfig:"ITA_ACTION_CLAIM_TTL"   default:"10m"`
	Holidays          []string      `envconfig:"ITA_NATIONAL_HOLIDAYS"`

	// Windows is filled from ITA_MSG{n}_DAYS/_START_TIME/_STOP_TIME, index 0 is MSG1.
	Windows [ItalyMessageTypes]ItalyWindow `ignored:"true"`
}

type BSSConfig struct {
	WebhookURL        string        `envconfig:"BSS_WEBHOOK_URL"          required:"true"`
	PortOutWebhookURL string        `envconfig:"BSS_WEBHOOK_PORT_OUT_URL" required:"true"`
	ReturnWebhookURL  string        `envconfig:"BSS_WEBHOOK_URL_RETURN"   required:"true"`
	Token             string        `envconfig:"BSS_WEBHOOK_TOKEN"`
	Timeout           time.Duration `envconfig:"BSS_WEBHOOK_TIMEOUT"      default:"30s"`
	Retries           int32         `envconfig:"CALLBACK_RETRIES"         default:"3"`
	Backoff           time.Duration `envconfig:"CALLBACK_BACKOFF"         default:"120s"`
	Interval          time.Duration `envconfig:"CALLBACK_INTERVAL"        default:"10s"`
	BatchSize         int           `envconfig:"CALLBACK_BATCH_SIZE"      default:"100"`
}

type WorkerConfig struct {
	DispatchInterval  time.Duration `envconfig:"PENDING_REQUESTS_TIMEOUT"             default:"60s"`
	PortOutInterval   time.Duration `envconfig:"TIME_DELTA_FOR_PORT_OUT_STATUS_CHECK" default:"5m"`
	ReturnInterval    time.Duration `envconfig:"TIME_DELTA_FOR_RETURN_STATUS_CHECK"   default:"60s"`
	StatusCheckDelay  time.Duration `envconfig:"TIME_DELTA_STATUS_CHECK"              default:"5m"`
	RetryDelay        time.Duration `envconfig:"TIME_DELTA_RETRY"                     default:"2m"`
	DispatchBatchSize int           `envconfig:"WORKER_BATCH_SIZE"                    default:"200"`
	PoolSize          int           `envconfig:"WORKER_POOL_SIZE"                     default:"8"`
	QueueSize         int           `envconfig:"WORKER_QUEUE_SIZE"                    default:"64"`
	LeaseTTL          time.Duration `envconfig:"WORKER_LEASE_TTL"                     default:"5m"`
	RunTimeout        time.Duration `envconfig:"WORKER_RUN_TIMEOUT"                   default:"2m"`
	PortOutPageSize   int           `envconfig:"PORT_OUT_PAGE_SIZE"                   default:"50"`
	PortOutMaxPages   int           `envconfig:"PORT_OUT_MAX_PAGES"                   default:"20"`
}

// defaultItalyWindows apply when ITA_MSG{n}_* is not set.
var defaultItalyWindows = [ItalyMessageTypes]ItalyWindow{
	{"MON-FRI", "10:00", "19:00"}, // 1 activation
	{"MON-FRI", "08:00", "20:00"}, // 2 validation
	{"MON-FRI", "08:00", "20:00"}, // 3 porting
	{"MON-FRI", "08:00", "20:00"}, // 4 cancellation
	{"MON-FRI", "21:00", "00:00"}, // 5 taking charge
	{"MON-SAT", "00:00", "06:00"}, // 6 fulfilment
	{"MON-FRI", "08:00", "20:00"}, // 7 cessation
	{"MON-FRI", "08:00", "20:00"}, // 8 ad-hoc
	{"MON-FRI", "08:00", "20:00"}, // 9 residual credit
	{"MON-FRI", "08:00", "20:00"}, // 10 anomalous credit unblock
	{"MON-FRI", "08:00", "20:00"}, // 11 amount unblock
	{"MON-FRI", "08:00", "20:00"}, // 12 cut-over change
	{"MON-FRI", "08:00", "20:00"}, // 13 cut-over change acknowledgement
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	log.Println("Loading configuration from environment variables...")

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, skipping: %v", err)
	} else {
		log.Println(".env loaded")
	}

	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	log.Printf("Configuration loaded successfully (API Addr: %s, TZ: %s)", cfg.GatewayAPI.Addr, cfg.TimeZone)
	return cfg, nil
}

// FromEnv processes the environment without touching .env files.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.Italy.Windows = italyWindows(lookup)
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", cfg.TimeZone, err)
	}
	if _, err := time.LoadLocation(cfg.Italy.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid ITA_TIME_ZONE %q: %w", cfg.Italy.TimeZone, err)
	}
	return &cfg, nil
}

func italyWindows(lookup func(string) (string, bool)) [ItalyMessageTypes]ItalyWindow {
	windows := defaultItalyWindows
	for i := range windows {
		n := i + 1
		if v, ok := lookup(fmt.Sprintf("ITA_MSG%d_DAYS", n)); ok && v != "" {
			windows[i].Days = v
		}
		if v, ok := lookup(fmt.Sprintf("ITA_MSG%d_START_TIME", n)); ok && v != "" {
			windows[i].Start = v
		}
		if v, ok := lookup(fmt.Sprintf("ITA_MSG%d_STOP_TIME", n)); ok && v != "" {
			windows[i].Stop = v
		}
	}
	return windows
}
