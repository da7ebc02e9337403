package orderscraper

import (
	"testing"
	"time"
)

func TestConfig_URLs(t *testing.T) {
	for _, base := range []string{"https://web.roapp.io", "https://web.roapp.io/"} {
		config := DefaultConfig()
		config.BaseURL = base
		if got := config.LoginURL(); got != "https://web.roapp.io/login" {
			t.Errorf("LoginURL() = %v", got)
		}
		if got := config.OrdersURL(); got != "https://web.roapp.io/orders/table" {
			t.Errorf("OrdersURL() = %v", got)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"windows-1251 output", func(c *Config) { c.OutputEncoding = "windows-1251" }, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
		{"empty output", func(c *Config) { c.OutputPath = " " }, true},
		{"empty base url", func(c *Config) { c.BaseURL = "" }, true},
		{"unknown encoding", func(c *Config) { c.OutputEncoding = "klingon" }, true},
		{"no table selector", func(c *Config) { c.Selectors.Table = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(&config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentials_Present(t *testing.T) {
	tests := []struct {
		credentials Credentials
		shouldBe    bool
	}{
		{Credentials{"user@example.com", "secret"}, true},
		{Credentials{"user@example.com", ""}, false},
		{Credentials{"", "secret"}, false},
		{Credentials{"  ", "secret"}, false},
	}
	for _, tt := range tests {
		if got := tt.credentials.Present(); got != tt.shouldBe {
			t.Errorf("%+v.Present() = %v, want %v", tt.credentials, got, tt.shouldBe)
		}
	}
}
