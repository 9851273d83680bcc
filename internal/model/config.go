package model

import "time"

// Config holds the complete qbank configuration
type Config struct {
	Segmenter     SegmenterConfig     `yaml:"segmenter" mapstructure:"segmenter"`
	Rules         RulesConfig         `yaml:"rules" mapstructure:"rules"`
	Canonicalizer CanonicalizerConfig `yaml:"canonicalizer" mapstructure:"canonicalizer"`
	AnswerKeys    AnswerKeyConfig     `yaml:"answer_keys" mapstructure:"answer_keys"`
	Concurrency   ConcurrencyConfig   `yaml:"concurrency" mapstructure:"concurrency"`
	Capture       CaptureConfig       `yaml:"capture" mapstructure:"capture"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Output        OutputConfig        `yaml:"output" mapstructure:"output"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
}

// SegmenterConfig controls the block segmenter
type SegmenterConfig struct {
	LookaheadWindow int      `yaml:"lookahead_window" mapstructure:"lookahead_window"` // Lines scanned for metadata after an identifier
	FallbackIssuer  string   `yaml:"fallback_issuer" mapstructure:"fallback_issuer"`   // Label used when no issuer line is found
	OriginTemplate  string   `yaml:"origin_template" mapstructure:"origin_template"`   // Printf template for the origin link
	DropLines       []string `yaml:"drop_lines" mapstructure:"drop_lines"`             // Substrings of page furniture lines
	RepairEncoding  bool     `yaml:"repair_encoding" mapstructure:"repair_encoding"`   // Undo double-encoded UTF-8
}

// RulesConfig points at the trigger rule table
type RulesConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`       // YAML rule table, empty for the built-in one
	Subject string `yaml:"subject" mapstructure:"subject"` // Force one rule set for every document
}

// CanonicalizerConfig controls DOM canonicalization of web fragments
type CanonicalizerConfig struct {
	Containers        []string `yaml:"containers" mapstructure:"containers"`                 // Content container classes, in preference order
	DecorativeClasses []string `yaml:"decorative_classes" mapstructure:"decorative_classes"` // Classes removed with their subtree
	ImageOrigin       string   `yaml:"image_origin" mapstructure:"image_origin"`             // Prefix for root-relative image sources
	IgnoredImages     []string `yaml:"ignored_images" mapstructure:"ignored_images"`         // Source substrings of decorative images
}

// AnswerKeyConfig holds the alias table for answer-key normalization
type AnswerKeyConfig struct {
	True                  []string `yaml:"true" mapstructure:"true"`
	False                 []string `yaml:"false" mapstructure:"false"`
	Annulled              []string `yaml:"annulled" mapstructure:"annulled"`
	MultipleChoiceLetters bool     `yaml:"multiple_choice_letters" mapstructure:"multiple_choice_letters"` // Treat every single letter A-E as multiple choice
}

// ConcurrencyConfig holds worker settings
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // Documents processed in parallel
}

// CaptureConfig controls the browser capture session
type CaptureConfig struct {
	ControlURL    string        `yaml:"control_url" mapstructure:"control_url"`       // DevTools endpoint of a running browser
	StartURL      string        `yaml:"start_url" mapstructure:"start_url"`           // Notebook URL to open, empty to use the current tab
	NextSelector  string        `yaml:"next_selector" mapstructure:"next_selector"`   // Element that advances to the next question
	Headless      bool          `yaml:"headless" mapstructure:"headless"`             // Launch headless when no control URL is set
	ReadyAttempts int           `yaml:"ready_attempts" mapstructure:"ready_attempts"` // Polls before capturing a page anyway
	ReadyInterval time.Duration `yaml:"ready_interval" mapstructure:"ready_interval"` // Delay between polls
	PageTimeout   time.Duration `yaml:"page_timeout" mapstructure:"page_timeout"`     // Timeout for one page operation
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"` // Check robots.txt before opening the start URL
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`         // Agent used for the robots.txt check
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`         // Overrides HTTP_PROXY
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`       // Overrides HTTPS_PROXY
	MaxPages      int           `yaml:"max_pages" mapstructure:"max_pages"`           // Stop after this many pages, 0 for no limit
}

// CacheConfig holds fragment store settings
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// OutputConfig holds output settings
type OutputConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`                       // Directory for run artifacts
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`               // Print per-document progress
	SplitFiles    bool   `yaml:"split_files" mapstructure:"split_files"`       // Also write accepted/excluded as flat arrays
	Markdown      bool   `yaml:"markdown" mapstructure:"markdown"`             // Write the Markdown triage report
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"` // Footer line in Markdown output
}

// LoggingConfig selects the logger flavour
type LoggingConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // production or development
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Segmenter: SegmenterConfig{
			LookaheadWindow: 5,
			FallbackIssuer:  "Não identificada",
			OriginTemplate:  DefaultOriginTemplate,
			DropLines: []string{
				"Caderno de Questões",
				"Ordenação:",
				"tecconcursos.com.br/s/",
			},
			RepairEncoding: true,
		},
		Canonicalizer: CanonicalizerConfig{
			Containers:        []string{"questao-enunciado-texto", "questao-conteudo"},
			DecorativeClasses: []string{"container-textoassociado", "MathJax_Preview", "MathJax"},
			ImageOrigin:       "https://www.tecconcursos.com.br",
			IgnoredImages:     []string{"icon", "spinner"},
		},
		AnswerKeys: AnswerKeyConfig{
			True:     []string{"C", "Certo", "V", "Verdadeiro", "TRUE", "T"},
			False:    []string{"E", "Errado", "F", "Falso", "FALSE"},
			Annulled: []string{"Anulada", "Anulado", "Anula", "Nula", "Nulo"},
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Capture: CaptureConfig{
			NextSelector:  "button[ng-click*='navegarParaQuestao']",
			Headless:      false,
			ReadyAttempts: 5,
			ReadyInterval: time.Second,
			PageTimeout:   30 * time.Second,
			RespectRobots: true,
			UserAgent:     "qbank/0.1 (+https://github.com/ppiankov/qbank)",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "", // Set at runtime to ~/.qbank/fragments
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Output: OutputConfig{
			Dir:           "./qbank-out",
			Markdown:      true,
			IncludeFooter: true,
		},
		Logging: LoggingConfig{
			Mode: "production",
		},
	}
}
