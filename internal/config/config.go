package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/pkg/logger"
	"github.com/JoeShih716/go-ledger-closing/pkg/mysql"
)

// StoreDriver 帳務資料存放方式
type StoreDriver string

const (
	StoreDriverMySQL  StoreDriver = "mysql"
	StoreDriverSQLite StoreDriver = "sqlite"
	StoreDriverMemory StoreDriver = "memory"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        logger.Config    `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	MySQL      mysql.Config     `yaml:"mysql"`
	Accounting AccountingConfig `yaml:"accounting"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver StoreDriver `yaml:"driver"`
	// SQLitePath: driver 為 sqlite 時的資料庫檔案
	SQLitePath string `yaml:"sqlite_path"`
	// WALPath: driver 為 memory 時的 WAL 檔案，空字串表示不落地
	WALPath string `yaml:"wal_path"`
	// AutoMigrate: 啟動時建立資料表
	AutoMigrate bool `yaml:"auto_migrate"`
}

type AccountingConfig struct {
	// ResultAccount: 本期損益科目
	ResultAccount string `yaml:"result_account"`
}

// Load 讀取 yaml 設定檔並補全預設值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 yaml 內容並補全預設值
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":50051"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverMySQL
	}
	if c.Store.Driver == StoreDriverSQLite {
		if c.Store.SQLitePath == "" {
			c.Store.SQLitePath = "data/ledger.db"
		}
		// SQLite 同一時間只有一個寫入者
		if c.MySQL.MaxOpenConns == 0 {
			c.MySQL.MaxOpenConns = 1
		}
		if c.MySQL.MaxIdleConns == 0 {
			c.MySQL.MaxIdleConns = 1
		}
	}
	c.MySQL.ApplyDefaults()
	if c.Accounting.ResultAccount == "" {
		c.Accounting.ResultAccount = domain.DefaultResultAccount
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverMySQL, StoreDriverSQLite, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == StoreDriverMySQL && c.MySQL.Host == "" {
		return fmt.Errorf("mysql.host is required for driver %q", c.Store.Driver)
	}
	return nil
}
