package config

import (
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Backend struct {
		BaseURL   string        `env:"BACKEND_BASE_URL" env-default:"http://localhost:3000/api"`
		AuthToken string        `env:"BACKEND_AUTH_TOKEN"`
		Timeout   time.Duration `env:"BACKEND_TIMEOUT" env-default:"15s"`
	}
	Actor struct {
		ID string `env:"ACTOR_ID"`
	}
	Upload struct {
		MaxBytes       int64 `env:"UPLOAD_MAX_BYTES" env-default:"52428800"`
		MaxCaptionLen  int   `env:"UPLOAD_MAX_CAPTION_LEN" env-default:"220"`
		PreviewMaxEdge int   `env:"UPLOAD_PREVIEW_MAX_EDGE" env-default:"320"`
	}
	Playback struct {
		ImageDwell   time.Duration `env:"PLAYBACK_IMAGE_DWELL" env-default:"5s"`
		VideoCap     time.Duration `env:"PLAYBACK_VIDEO_CAP" env-default:"30s"`
		TickInterval time.Duration `env:"PLAYBACK_TICK_INTERVAL" env-default:"100ms"`
		MediaGrace   time.Duration `env:"PLAYBACK_MEDIA_GRACE" env-default:"1500ms"`
	}
	Refresh struct {
		Interval      time.Duration `env:"REFRESH_INTERVAL" env-default:"1m"`
		SweepInterval time.Duration `env:"REFRESH_SWEEP_INTERVAL" env-default:"1h"`
	}
	ViewTracker struct {
		Workers        int           `env:"VIEW_TRACKER_WORKERS" env-default:"4"`
		RequestTimeout time.Duration `env:"VIEW_TRACKER_REQUEST_TIMEOUT" env-default:"5s"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}
