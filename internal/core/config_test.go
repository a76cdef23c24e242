package core

import (
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"valid":                  {mutate: func(*Config) {}},
		"empty host":             {mutate: func(c *Config) { c.Host = "" }, wantErr: "host"},
		"zero cluster size":      {mutate: func(c *Config) { c.ClusterSize = 0 }, wantErr: "cluster size"},
		"client port too high":   {mutate: func(c *Config) { c.BaseClientPort = 65535 }, wantErr: "client port"},
		"internal port negative": {mutate: func(c *Config) { c.BaseInternalPort = -1 }, wantErr: "internal port"},
		"missing data dir":       {mutate: func(c *Config) { c.BaseDataDir = "" }, wantErr: "data dir"},
		"missing runtime":        {mutate: func(c *Config) { c.Runtime = "" }, wantErr: "runtime"},
		"negative settle delay":  {mutate: func(c *Config) { c.SettleDelay = -time.Second }, wantErr: "settle delay"},
		"zero settle delay":      {mutate: func(c *Config) { c.SettleDelay = 0 }},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAllErrors(t *testing.T) {
	t.Parallel()

	err := Config{}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if n := strings.Count(err.Error(), "\n") + 1; n < 3 {
		t.Errorf("expected several joined errors, got %d: %v", n, err)
	}
}
