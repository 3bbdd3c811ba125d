package app

import (
	"time"

	"github.com/hyperifyio/goslides/internal/template"
)

// Defaults shared by flag parsing and config file overlay. A field equal to
// its default is treated as unset when applying the config file.
const (
	DefaultTemplatePath  = "template.pptx"
	DefaultCacheDir      = ".goslides-cache"
	DefaultLLMTimeout    = 120 * time.Second
	DefaultSlotBackoff   = 800 * time.Millisecond
	DefaultSlotPause     = 2 * time.Second
	DefaultSlotAttempts  = 4
	DefaultCacheMaxCount = 0
)

// Config holds runtime configuration for the application.
type Config struct {
	// Request
	InputPath    string
	Topic        string
	Meta         map[string]string
	TemplatePath string
	OutputPath   string
	// OutputPDFPath, when set, also renders the outline as a handout.
	OutputPDFPath string

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	LLMTimeout time.Duration
	Language   string

	// Generation
	Layout          template.Layout
	Seed            uint64
	MaxSlotAttempts int
	SlotBackoff     time.Duration
	SlotPause       time.Duration

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxCount    int
	CacheClear       bool
	CacheStrictPerms bool
	LLMCacheOnly     bool

	// Behavior
	DryRun  bool
	Verbose bool
}
