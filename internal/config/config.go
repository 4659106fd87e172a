// Package config loads the application configuration shared by all
// pipeline stages from a single YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Database holds the connection parameters of the document store.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Schema   string `yaml:"schema"`
	Table    string `yaml:"table"`
	Debug    bool   `yaml:"debug"`
}

// DSN renders the pgx connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

// Mailbox identifies the shared mailbox the pipeline reads from. The root
// directory backs the filesystem implementation used for local runs.
type Mailbox struct {
	Address    string `yaml:"address"`
	User       string `yaml:"user"`
	Server     string `yaml:"server"`
	Root       string `yaml:"root"`
	Categories struct {
		Documents []string `yaml:"documents"`
		Control   []string `yaml:"control"`
	} `yaml:"categories"`
	Subfolders Subfolders `yaml:"subfolders"`
}

// Subfolders names the customer subfolders messages are dispatched to.
type Subfolders struct {
	Ready     string `yaml:"claim_creation_ready"`
	Failed    string `yaml:"claim_creation_failed"`
	Completed string `yaml:"claim_creation_completed"`
	Unmatched string `yaml:"claim_update_failed"`
}

// SMTP configures outbound mail. Recipients receive the failure reports.
type SMTP struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Sender     string   `yaml:"sender"`
	Recipients []string `yaml:"recipients"`
}

// OCR configures the PDF-to-text service client.
type OCR struct {
	URL                string            `yaml:"url"`
	Secret             string            `yaml:"secret"`
	Routes             map[string]string `yaml:"routes"`
	Attempts           int               `yaml:"attempts"`
	WaitSeconds        int               `yaml:"wait"`
	TimeoutSeconds     int               `yaml:"timeout"`
	Force              bool              `yaml:"force"`
	IgnoreServerErrors bool              `yaml:"ignore_server_errors"`
}

// ERP configures the back-office connection.
type ERP struct {
	SystemID string `yaml:"system_id"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Dirs lists the shared document folders.
type Dirs struct {
	Input       string `yaml:"input"`
	Upload      string `yaml:"upload"`
	Done        string `yaml:"done"`
	Failed      string `yaml:"failed"`
	Duplicate   string `yaml:"duplicate"`
	TemplateErr string `yaml:"template_err"`
	Archive     string `yaml:"archive"`
	Control     string `yaml:"control"`
	Temp        string `yaml:"temp"`
	Templates   string `yaml:"templates"`
	Rules       string `yaml:"rules"`
	Maps        string `yaml:"maps"`
}

// Customer holds the per-customer download and extraction settings.
type Customer struct {
	PDFCount       string `yaml:"pdf_count"` // zero_or_one, one, one_or_two
	AttachMerged   bool   `yaml:"attach_merged"`
	AttachmentName string `yaml:"attachment_name"` // default or base
	PDFType        string `yaml:"pdf_type"`        // textual or scanned
	Extractor      string `yaml:"extractor"`       // TEMPLATE, AI or LOCAL
}

// Blob configures the object store the AI-extraction documents are staged in.
type Blob struct {
	Bucket          string `yaml:"bucket"`
	VirtualDir      string `yaml:"virtual_dir"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Processing carries the cross-stage policies.
type Processing struct {
	CreditRetentionDays int    `yaml:"credit_retention_days"`
	Duplicates          string `yaml:"duplicates"` // first, last or error
}

// Config is the root of the application configuration.
type Config struct {
	Database   Database            `yaml:"database"`
	Mailbox    Mailbox             `yaml:"mails"`
	SMTP       SMTP                `yaml:"smtp"`
	OCR        OCR                 `yaml:"ocr"`
	ERP        ERP                 `yaml:"erp"`
	Dirs       Dirs                `yaml:"dirs"`
	Blob       Blob                `yaml:"blob"`
	Customers  map[string]Customer `yaml:"customers"`
	Processing Processing          `yaml:"processing"`
	PDFMerger  string              `yaml:"pdf_merger"` // pdfunite-compatible binary
	Debug      bool                `yaml:"debug"`
}

// Load reads the YAML file at path. Secrets may be referenced through
// environment variables ($VAR or ${VAR}); they are expanded before parsing.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Processing.Duplicates {
	case "", "first", "last", "error":
	default:
		return fmt.Errorf("config: unrecognized duplicates policy %q", c.Processing.Duplicates)
	}

	for name, cust := range c.Customers {
		switch cust.PDFCount {
		case "zero_or_one", "one", "one_or_two":
		default:
			return fmt.Errorf("config: customer %s: unrecognized pdf count %q", name, cust.PDFCount)
		}
		switch cust.AttachmentName {
		case "", "default", "base":
		default:
			return fmt.Errorf("config: customer %s: unrecognized attachment name %q", name, cust.AttachmentName)
		}
	}

	return nil
}
