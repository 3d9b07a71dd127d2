package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	c := Load()
	if c.AppPort != "8080" {
		t.Fatalf("AppPort = %s", c.AppPort)
	}
	if c.DBDriver != "mysql" {
		t.Fatalf("DBDriver = %s", c.DBDriver)
	}
	if c.VerifyTimeout != 10*time.Second {
		t.Fatalf("VerifyTimeout = %v", c.VerifyTimeout)
	}
	if !c.AllowLateRepayment {
		t.Fatal("AllowLateRepayment should default to true")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/test.db")
	t.Setenv("ALLOW_LATE_REPAYMENT", "false")
	t.Setenv("VERIFY_TIMEOUT_SECONDS", "3")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")

	c := Load()
	if c.DBDriver != "sqlite" || c.SQLitePath != "/tmp/test.db" {
		t.Fatalf("sqlite config: %+v", c)
	}
	if c.AllowLateRepayment {
		t.Fatal("ALLOW_LATE_REPAYMENT=false not honored")
	}
	if c.VerifyTimeout != 3*time.Second {
		t.Fatalf("VerifyTimeout = %v", c.VerifyTimeout)
	}
	if c.IdempTTL() != time.Minute {
		t.Fatalf("IdempTTL = %v", c.IdempTTL())
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("sqlite config must validate: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := map[string]func(*Config){
		"empty app port":  func(c *Config) { c.AppPort = "" },
		"unknown driver":  func(c *Config) { c.DBDriver = "postgres" },
		"bad mysql port":  func(c *Config) { c.MySQLPort = "not-a-port" },
		"missing db name": func(c *Config) { c.MySQLDB = "" },
		"empty sqlite path": func(c *Config) {
			c.DBDriver = "sqlite"
			c.SQLitePath = ""
		},
	}
	for name, mutate := range cases {
		c := Load()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestMySQLDSN(t *testing.T) {
	c := Load()
	c.MySQLUser, c.MySQLPass = "u", "p"
	c.MySQLHost, c.MySQLPort, c.MySQLDB = "db-host", "3307", "ledger"
	want := "u:p@tcp(db-host:3307)/ledger?multiStatements=true&parseTime=true&charset=utf8mb4,utf8"
	if got := c.MySQLDSN(); got != want {
		t.Fatalf("DSN = %s", got)
	}
}
