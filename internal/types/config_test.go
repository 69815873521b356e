package types

import (
	"os"
	"path/filepath"
	"time"
)

func (s *UnitTestSuite) TestDefaultConfigIsValid() {
	cfg := DefaultConfig()
	s.NoError(cfg.Validate())
	s.Error(cfg.ValidateServer(), "no jwt secret")

	s.Equal(300*time.Second, cfg.Cache.StaleAfter(ResourceProjects))
	s.Equal(600*time.Second, cfg.Cache.StaleAfter(ResourceProfile))
	s.Equal(time.Second, cfg.Retry.BaseDelay())
	s.Equal(10*time.Second, cfg.Retry.MaxDelay())
}

func (s *UnitTestSuite) TestLoadConfig() {
	path := filepath.Join(s.T().TempDir(), "folio.yml")
	s.Require().NoError(os.WriteFile(path, []byte(`
api:
  base_url: https://admin.example.com/api
  timeout_seconds: 10
retry:
  max_retries: 5
  base_delay_ms: 200
  max_delay_ms: 2000
server:
  port: 9090
  backend: redis
`), 0o600))

	cfg, err := LoadConfig(path)
	s.Require().NoError(err)
	s.Equal("https://admin.example.com/api", cfg.API.BaseURL)
	s.Equal(10, cfg.API.TimeoutSeconds)
	s.Equal(DefaultRefreshPath, cfg.API.RefreshPath)
	s.Equal(5, cfg.Retry.MaxRetries)
	s.Equal(9090, cfg.Server.Port)
	s.Equal("redis", cfg.Server.Backend)
	s.Equal(DefaultErrorCodeExpr, cfg.Errors.CodeExpr)
	s.NoError(cfg.Validate())
}

func (s *UnitTestSuite) TestLoadConfigErrors() {
	_, err := LoadConfig(filepath.Join(s.T().TempDir(), "missing.yml"))
	s.ErrorIs(err, ErrInvalidConfig)

	path := filepath.Join(s.T().TempDir(), "bad.yml")
	s.Require().NoError(os.WriteFile(path, []byte("api: [unclosed"), 0o600))
	_, err = LoadConfig(path)
	s.ErrorIs(err, ErrInvalidConfig)

	cfg, err := LoadConfig("")
	s.NoError(err)
	s.Equal(DefaultConfig(), cfg)
}

func (s *UnitTestSuite) TestApplyEnv() {
	env := map[string]string{
		"FOLIO_API_URL":       "http://localhost:9999",
		"FOLIO_TOKEN":         "access",
		"FOLIO_REFRESH_TOKEN": "refresh",
		"FOLIO_JWT_SECRET":    "0123456789abcdef",
		"RESOURCE_BACKEND":    "memory",
		"SNS_TOPIC_ARN":       "arn:aws:sns:us-east-1:000000000000:folio",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	s.Equal("http://localhost:9999", cfg.API.BaseURL)
	s.Equal("access", cfg.API.Token)
	s.Equal("refresh", cfg.API.RefreshToken)
	s.Equal("memory", cfg.Server.Backend)
	s.Equal("arn:aws:sns:us-east-1:000000000000:folio", cfg.Server.TopicArn)
	s.Equal("/uploads", cfg.Server.UploadPublicURL, "unset variables keep the file value")
	s.NoError(cfg.ValidateServer())
}

func (s *UnitTestSuite) TestValidate() {
	cases := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"non http base url", func(c *Config) { c.API.BaseURL = "ftp://example.com" }},
		{"negative timeout", func(c *Config) { c.API.TimeoutSeconds = -1 }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
		{"max below base", func(c *Config) { c.Retry.MaxDelayMS = c.Retry.BaseDelayMS - 1 }},
		{"negative stale", func(c *Config) { c.Cache.StaleSeconds = map[string]int{"projects": -1} }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.modify(&cfg)
		s.Error(cfg.Validate(), tc.name)
	}
}
