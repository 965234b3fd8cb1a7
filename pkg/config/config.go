// Package config loads and validates the runtime configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidConfig indicates the configuration file failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	// DefaultCacheExpiry is the membership snapshot lifetime in seconds.
	DefaultCacheExpiry = 86400

	defaultCachePath = "cache.json"
	defaultLockPath  = "attendant.lock"
	defaultLedgerURL = "file://template_actions.json"
)

// Config is the decoded runtime configuration.
type Config struct {
	CacheExpiry int64        `json:"cache_expiry" validate:"gte=0"`
	CachePath   string       `json:"cache_path"`
	LockPath    string       `json:"lock_path"`
	LedgerURL   string       `json:"ledger_url"`
	Taiga       TaigaConfig  `json:"taiga"       validate:"required"`
	TidyHQ      TidyHQConfig `json:"tidyhq"      validate:"required"`
	Chat        ChatConfig   `json:"chat"`
}

// TaigaConfig describes the tracker connection and board conventions.
type TaigaConfig struct {
	URL      string `json:"url"      validate:"required,url"`
	Username string `json:"username" validate:"required_without=Token"`
	Password string `json:"password" validate:"required_without=Token"`
	// Token skips the username/password exchange when pre-provisioned.
	Token string `json:"token"`

	Project         string `json:"project"`
	Tag             string `json:"tag"`
	TemplateSubject string `json:"template_subject"`

	// Custom attribute ids on user stories, as string keys of the
	// attributes_values payload.
	ContactField    string `json:"contact_field"     validate:"required"`
	EmailField      string `json:"email_field"       validate:"required"`
	ContactURLField string `json:"contact_url_field"`
	MemberTypeField string `json:"member_type_field"`

	// EmailTombstone replaces the email field once a contact is linked.
	EmailTombstone string `json:"email_tombstone"`

	ClosedTaskStatus        int      `json:"closed_task_status"         validate:"required"`
	NotApplicableTaskStatus int      `json:"not_applicable_task_status"`
	ExemptTaskStatuses      []string `json:"exempt_task_statuses"`

	InitialStage int      `json:"initial_stage" validate:"required"`
	IntakeStages []string `json:"intake_stages"`
	MemberStage  string   `json:"member_stage"`
}

// TidyHQConfig describes the membership database connection.
type TidyHQConfig struct {
	Token string `json:"token" validate:"required"`
	// IDs maps well-known custom field names (slack, photo_id,
	// concession, key_status) to TidyHQ field ids.
	IDs            map[string]string `json:"ids"             validate:"required"`
	TrainingPrefix string            `json:"training_prefix" validate:"required"`

	QualifyingMemberships []string  `json:"qualifying_memberships"`
	BondInvoiceAmounts    []float64 `json:"bond_invoice_amounts"`
}

// ChatConfig describes the optional chat notification target.
type ChatConfig struct {
	Token         string `json:"token"`
	NotifyChannel string `json:"notify_channel"`
}

// Load reads, validates and decodes the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CacheExpiry == 0 {
		c.CacheExpiry = DefaultCacheExpiry
	}

	if c.CachePath == "" {
		c.CachePath = defaultCachePath
	}

	if c.LockPath == "" {
		c.LockPath = defaultLockPath
	}

	if c.LedgerURL == "" {
		c.LedgerURL = defaultLedgerURL
	}

	if c.Taiga.Project == "" {
		c.Taiga.Project = "Attendee"
	}

	if c.Taiga.Tag == "" {
		c.Taiga.Tag = "bot-managed"
	}

	if c.Taiga.TemplateSubject == "" {
		c.Taiga.TemplateSubject = "Template"
	}

	if c.Taiga.EmailTombstone == "" {
		c.Taiga.EmailTombstone = "See TidyHQ"
	}

	if len(c.Taiga.ExemptTaskStatuses) == 0 {
		c.Taiga.ExemptTaskStatuses = []string{"Optional", "Not applicable"}
	}

	if len(c.Taiga.IntakeStages) == 0 {
		c.Taiga.IntakeStages = []string{"Prospective", "Intake"}
	}

	if c.Taiga.MemberStage == "" {
		c.Taiga.MemberStage = "Attendee"
	}

	if len(c.TidyHQ.QualifyingMemberships) == 0 {
		c.TidyHQ.QualifyingMemberships = []string{"Full", "Concession", "Sponsor"}
	}

	if len(c.TidyHQ.BondInvoiceAmounts) == 0 {
		c.TidyHQ.BondInvoiceAmounts = []float64{135, 225}
	}
}

func validateSchema(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(descriptions, "; "))
	}

	return nil
}
