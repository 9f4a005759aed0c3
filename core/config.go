package core

import (
	"fmt"
	"strings"
	"time"
)

const defaultRequestTimeout = 3000 * time.Millisecond

type SmartsheetConfig struct {
	Token   string `koanf:"token" mapstructure:"token"`
	SheetID string `koanf:"sheet_id" mapstructure:"sheet_id"`
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
}

type WebexConfig struct {
	Token   string `koanf:"token" mapstructure:"token"`
	RoomID  string `koanf:"room_id" mapstructure:"room_id"`
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
}

type WebhookConfig struct {
	Name      string `koanf:"name" mapstructure:"name"`
	PublicURL string `koanf:"public_url" mapstructure:"public_url"`
	Version   string `koanf:"version" mapstructure:"version"`
}

type Config struct {
	ServiceName     string           `koanf:"service_name" mapstructure:"service_name"`
	Smartsheet      SmartsheetConfig `koanf:"smartsheet" mapstructure:"smartsheet"`
	Webex           WebexConfig      `koanf:"webex" mapstructure:"webex"`
	Webhook         WebhookConfig    `koanf:"webhook" mapstructure:"webhook"`
	Columns         ColumnMap        `koanf:"columns" mapstructure:"columns"`
	MessageTemplate string           `koanf:"message_template" mapstructure:"message_template"`
	RequestTimeout  time.Duration    `koanf:"request_timeout" mapstructure:"request_timeout"`
	Port            int              `koanf:"port" mapstructure:"port"`
}

// DefaultMessageTemplate is the outbound message when no template is
// configured. Field names match the keys Render exposes.
const DefaultMessageTemplate = "New entry from {{ .name }} ({{ .profile }}) on challenge {{ .challenge }}\n\n{{ .status }}"

func DefaultConfig() Config {
	return Config{
		ServiceName: "sheet-relay",
		Smartsheet: SmartsheetConfig{
			BaseURL: "https://api.smartsheet.com/2.0",
		},
		Webex: WebexConfig{
			BaseURL: "https://webexapis.com/v1",
		},
		Webhook: WebhookConfig{
			Name:    RegistrationName,
			Version: SubscriptionVersion,
		},
		Columns:         DefaultColumnMap(),
		MessageTemplate: DefaultMessageTemplate,
		RequestTimeout:  defaultRequestTimeout,
		Port:            8080,
	}
}

// Validate checks structural validity. Credentials are checked separately
// by ValidateRequired so partially-populated layers can still merge.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("core: request_timeout must not be negative")
	}
	if err := c.Columns.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateRequired checks the settings the relay cannot run without.
// A failure here is the ConfigMissing pre-flight condition: fatal at
// startup, never at runtime.
func (c Config) ValidateRequired() error {
	if strings.TrimSpace(c.Smartsheet.Token) == "" {
		return fmt.Errorf("core: smartsheet.token is required")
	}
	if strings.TrimSpace(c.Smartsheet.SheetID) == "" {
		return fmt.Errorf("core: smartsheet.sheet_id is required")
	}
	if strings.TrimSpace(c.Webex.Token) == "" {
		return fmt.Errorf("core: webex.token is required")
	}
	if strings.TrimSpace(c.Webex.RoomID) == "" {
		return fmt.Errorf("core: webex.room_id is required")
	}
	if strings.TrimSpace(c.MessageTemplate) == "" {
		return fmt.Errorf("core: message_template is required")
	}
	if strings.TrimSpace(c.Webhook.Name) == "" {
		return fmt.Errorf("core: webhook.name is required")
	}
	return nil
}
