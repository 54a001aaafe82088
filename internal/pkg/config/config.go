package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/env"
)

// Config holds every tunable the service reads. It is constructed once at
// process start and passed by reference; components never reach into the
// environment themselves.
type Config struct {
	AppHost     string `validate:"required"`
	AppPort     string `validate:"required,numeric"`
	AdminAPIKey string

	// Transport guard
	MaxPayloadBytes    int           `validate:"gt=0"`
	MaxJSONDepth       int           `validate:"gt=0"`
	ReplayWindow       time.Duration `validate:"gt=0"`
	TimestampTolerance time.Duration `validate:"gt=0"`
	IPAllowlistStrict  bool
	IPRangeRefreshTTL  time.Duration `validate:"gt=0"`

	// Rate limiting tiers per (platform, client IP)
	RateLimitPerMinute int `validate:"gt=0"`
	RateLimitPerHour   int `validate:"gt=0"`
	RateLimitBurst10s  int `validate:"gt=0"`
	RateLimitGlobalMin int `validate:"gt=0"`

	// Processing
	ProcessInline     bool
	QueueWorkers      int           `validate:"gt=0"`
	ProcessingDelay   time.Duration // absorbs redelivery bursts before first attempt
	MaxRetries        int           `validate:"gt=0"`
	DedupWindow       time.Duration `validate:"gt=0"`
	MilestoneLadder   []int64       `validate:"min=1"`
	ViralThresholds   map[string]ViralThreshold
	SentimentScores   map[string]float64
	NegativeKeywords  []string
	PositiveKeywords  []string
	UrgentKeywords    []string
	SubscribedDefault []string

	// Alerting
	AlertCooldown        time.Duration `validate:"gt=0"`
	AlertCooldownMax     time.Duration `validate:"gt=0"`
	AlertChatWebhookURL  string
	AlertEmailRecipient  string
	AlertGenericHookURL  string
	ErrorRateThreshold   float64       `validate:"gt=0"`
	QueueBacklogLimit    int64         `validate:"gt=0"`
	ResponseP95LimitMS   float64       `validate:"gt=0"`
	ViolationSpikeLimit  int64         `validate:"gt=0"`
	DiskWarningPercent   float64       `validate:"gt=0,lte=100"`
	DiskCriticalPercent  float64       `validate:"gt=0,lte=100"`
	HealthCheckInterval  time.Duration `validate:"gt=0"`
	HealthFailureLimit   int           `validate:"gt=0"`
	AlertEvalInterval    time.Duration `validate:"gt=0"`
	MonitoredEndpointURL string
}

// ViralThreshold is the per-platform trigger pair for viral-content
// detection: engagement rate in percent at a minimum audience volume.
type ViralThreshold struct {
	RatePercent float64
	MinVolume   int64
}

// Load builds the immutable configuration from the environment and
// validates it. It panics on invalid configuration: a service with a broken
// security posture must not start.
func Load() *Config {
	cfg := &Config{
		AppHost:     env.GetEnv("APP_HOST", "localhost"),
		AppPort:     env.GetEnv("APP_PORT", "4000"),
		AdminAPIKey: env.GetEnv("ADMIN_API_KEY", ""),

		MaxPayloadBytes:    getInt("WEBHOOK_MAX_PAYLOAD_BYTES", 1024*1024),
		MaxJSONDepth:       getInt("WEBHOOK_MAX_JSON_DEPTH", 50),
		ReplayWindow:       getDuration("WEBHOOK_REPLAY_WINDOW", 300*time.Second),
		TimestampTolerance: getDuration("WEBHOOK_TIMESTAMP_TOLERANCE", 300*time.Second),
		IPAllowlistStrict:  getBool("WEBHOOK_IP_STRICT", false),
		IPRangeRefreshTTL:  getDuration("WEBHOOK_IP_RANGE_TTL", time.Hour),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitPerHour:   getInt("RATE_LIMIT_PER_HOUR", 1000),
		RateLimitBurst10s:  getInt("RATE_LIMIT_BURST_10S", 20),
		RateLimitGlobalMin: getInt("RATE_LIMIT_GLOBAL_PER_MINUTE", 600),

		ProcessInline:   getBool("WEBHOOK_PROCESS_INLINE", false),
		QueueWorkers:    getInt("QUEUE_WORKERS", 3),
		ProcessingDelay: getDuration("WEBHOOK_PROCESSING_DELAY", 3*time.Second),
		MaxRetries:      getInt("WEBHOOK_MAX_RETRIES", 5),
		DedupWindow:     getDuration("WEBHOOK_DEDUP_WINDOW", 24*time.Hour),

		MilestoneLadder: []int64{50, 100, 500, 1000, 5000, 10000, 50000, 100000},
		ViralThresholds: map[string]ViralThreshold{
			"facebook":  {RatePercent: 10, MinVolume: 1000},
			"instagram": {RatePercent: 5, MinVolume: 5000},
			"twitter":   {RatePercent: 2, MinVolume: 5000},
			"linkedin":  {RatePercent: 4, MinVolume: 2000},
		},
		SentimentScores: map[string]float64{
			"facebook":  -0.5,
			"instagram": -0.5,
			"twitter":   -0.6,
			"linkedin":  -0.4,
		},
		NegativeKeywords: splitList(env.GetEnv("SENTIMENT_NEGATIVE_KEYWORDS",
			"bad,terrible,awful,hate,worst,disappointed,scam,refund,broken,useless")),
		PositiveKeywords: splitList(env.GetEnv("SENTIMENT_POSITIVE_KEYWORDS",
			"great,love,awesome,amazing,excellent,best,thanks,perfect,helpful")),
		UrgentKeywords: splitList(env.GetEnv("URGENT_MESSAGE_KEYWORDS",
			"urgent,asap,emergency,complaint,lawyer,legal,press,refund now")),
		SubscribedDefault: splitList(env.GetEnv("WEBHOOK_DEFAULT_EVENTS",
			"feed,comments,mention,messages,leadgen")),

		AlertCooldown:        getDuration("ALERT_COOLDOWN", 15*time.Minute),
		AlertCooldownMax:     getDuration("ALERT_COOLDOWN_MAX", 2*time.Hour),
		AlertChatWebhookURL:  env.GetEnv("ALERT_CHAT_WEBHOOK_URL", ""),
		AlertEmailRecipient:  env.GetEnv("ALERT_EMAIL_RECIPIENT", ""),
		AlertGenericHookURL:  env.GetEnv("ALERT_GENERIC_WEBHOOK_URL", ""),
		ErrorRateThreshold:   getFloat("ALERT_ERROR_RATE_PERCENT", 10),
		QueueBacklogLimit:    int64(getInt("ALERT_QUEUE_BACKLOG", 500)),
		ResponseP95LimitMS:   getFloat("ALERT_RESPONSE_P95_MS", 2000),
		ViolationSpikeLimit:  int64(getInt("ALERT_VIOLATION_SPIKE", 50)),
		DiskWarningPercent:   getFloat("DISK_WARNING_PERCENT", 80),
		DiskCriticalPercent:  getFloat("DISK_CRITICAL_PERCENT", 95),
		HealthCheckInterval:  getDuration("HEALTH_CHECK_INTERVAL", 60*time.Second),
		HealthFailureLimit:   getInt("HEALTH_FAILURE_LIMIT", 3),
		AlertEvalInterval:    getDuration("ALERT_EVAL_INTERVAL", 60*time.Second),
		MonitoredEndpointURL: env.GetEnv("MONITORED_ENDPOINT_URL", ""),
	}

	if err := validator.New().Struct(cfg); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}
	return cfg
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(env.GetEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(env.GetEnv(key, ""), 64); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	switch strings.ToLower(env.GetEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(env.GetEnv(key, "")); err == nil {
		return v
	}
	return def
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
