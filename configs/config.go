package configs

import (
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config struct
type Config struct {
	App      `mapstructure:"app"`
	Napcat   `mapstructure:"napcat"`
	Qzone    `mapstructure:"qzone"`
	Monitor  `mapstructure:"monitor"`
	Send     `mapstructure:"send"`
	Schedule `mapstructure:"schedule"`
	Routine  `mapstructure:"routine"`
	Diary    `mapstructure:"diary"`
	LLM      `mapstructure:"llm"`
	Images   `mapstructure:"images"`
	Storage  `mapstructure:"storage"`
	Postgres `mapstructure:"postgres"`
	Planner  `mapstructure:"planner"`
}

// App struct
type App struct {
	Debug       bool   `mapstructure:"debug"`
	Env         string `mapstructure:"env"`
	Port        string `mapstructure:"port"`
	Personality string `mapstructure:"personality"`
}

// Napcat struct - The chat gateway cookies and client keys are fetched from.
type Napcat struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// Qzone struct - Platform account and cookie acquisition settings.
type Qzone struct {
	Uin           string   `mapstructure:"uin"`
	CookieMethods []string `mapstructure:"cookie_methods"`
	QRWaitSeconds int      `mapstructure:"qr_wait_seconds"`
}

// Monitor struct - Feed monitoring and interaction settings.
type Monitor struct {
	Enabled             bool     `mapstructure:"enabled"`
	TargetUsers         []string `mapstructure:"target_users"`
	ExcludeUsers        []string `mapstructure:"exclude_users"`
	ReadMode            string   `mapstructure:"read_mode" validate:"omitempty,oneof=whitelist blacklist"`
	FetchCount          int      `mapstructure:"fetch_count"`
	SelfFetchCount      int      `mapstructure:"self_fetch_count"`
	LikePossibility     float64  `mapstructure:"like_possibility" validate:"gte=0,lte=1"`
	CommentPossibility  float64  `mapstructure:"comment_possibility" validate:"gte=0,lte=1"`
	SilentHours         string   `mapstructure:"silent_hours"`
	LikeDuringSilent    bool     `mapstructure:"like_during_silent"`
	CommentDuringSilent bool     `mapstructure:"comment_during_silent"`
	EnableAutoReply     bool     `mapstructure:"enable_auto_reply"`
	ProcessedCapacity   int      `mapstructure:"processed_capacity"`
	ItemDelayMinMs      int      `mapstructure:"item_delay_min_ms"`
	ItemDelayMaxMs      int      `mapstructure:"item_delay_max_ms"`
}

// Send struct - Self-post settings and the command permission policy.
type Send struct {
	PermissionMode string   `mapstructure:"permission_mode" validate:"omitempty,oneof=whitelist blacklist"`
	PermissionList []string `mapstructure:"permission_list"`
	HistoryNumber  int      `mapstructure:"history_number"`
	CustomAccount  string   `mapstructure:"custom_account"`
	CustomOnlySelf bool     `mapstructure:"custom_only_self"`
}

// Schedule struct - Fixed timetable mode for self-posting.
type Schedule struct {
	Enabled       bool     `mapstructure:"enabled"`
	Times         []string `mapstructure:"times"`
	RandomMinutes int      `mapstructure:"random_minutes"`
	Probability   float64  `mapstructure:"probability" validate:"gte=0,lte=1"`
}

// Routine struct - Activity-driven autonomous mode.
type Routine struct {
	Enabled               bool `mapstructure:"enabled"`
	CheckIntervalMinutes  int  `mapstructure:"check_interval_minutes"`
	PostCooldownMinutes   int  `mapstructure:"post_cooldown_minutes"`
	BrowseCooldownMinutes int  `mapstructure:"browse_cooldown_minutes"`
}

// Diary struct - Daily diary generation settings.
type Diary struct {
	Enabled         bool     `mapstructure:"enabled"`
	ScheduleTime    string   `mapstructure:"schedule_time"`
	Style           string   `mapstructure:"style" validate:"omitempty,oneof=diary qzone custom"`
	CustomPrompt    string   `mapstructure:"custom_prompt"`
	MinWordCount    int      `mapstructure:"min_word_count"`
	MaxWordCount    int      `mapstructure:"max_word_count"`
	MinMessageCount int      `mapstructure:"min_message_count"`
	FilterMode      string   `mapstructure:"filter_mode" validate:"omitempty,oneof=all whitelist blacklist"`
	TargetChats     []string `mapstructure:"target_chats"`
	AutoPublish     bool     `mapstructure:"auto_publish"`
}

// LLM struct - The OpenAI-compatible generation backend.
type LLM struct {
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	ImageModel  string  `mapstructure:"image_model"`
	ImageSize   string  `mapstructure:"image_size"`
	Timeout     int     `mapstructure:"timeout"`
	Temperature float64 `mapstructure:"temperature"`
}

// Images struct - Post attachment pipeline.
type Images struct {
	Enabled       bool    `mapstructure:"enabled"`
	Mode          string  `mapstructure:"mode" validate:"omitempty,oneof=only_ai only_emoji random"`
	AIProbability float64 `mapstructure:"ai_probability" validate:"gte=0,lte=1"`
	Number        int     `mapstructure:"number" validate:"gte=0,lte=4"`
}

// Storage struct - Flat-file state location. Empty means the XDG data home.
type Storage struct {
	StateDir string `mapstructure:"state_dir"`
}

// Postgres struct
type Postgres struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"database"`
	SSLMode  bool   `mapstructure:"sslmode"`
}

// Planner struct - The planning collaborator's SQLite database.
type Planner struct {
	DBPath string `mapstructure:"db_path"`
}

var config Config

// InitViper func
func InitViper(path, env string) {
	getConfig(path, env)
}

// GetViper func
func GetViper() *Config {
	return &config
}

func getConfig(path, env string) {
	viper.SetConfigName("config")
	viper.AddConfigPath(path)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Absent probability keys mean "always act"; an explicit 0 still means
	// "never". Zero cannot carry both meanings, so the default lives here.
	viper.SetDefault("monitor.like_possibility", 1.0)
	viper.SetDefault("monitor.comment_possibility", 1.0)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Println("Config file has changed: ", e.Name)
	})
	err = viper.Unmarshal(&config)
	if err != nil {
		log.Fatalln(err)
	}
}
