package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

/*
[storage]
data_dir     = data
data_file    = petro.db
catalog_file = catalog.mp
sync_writes  = true

[buffer]
frames = 64
k      = 2

[logs]
level = info
file  =
*/
type Cfg struct {
	Raw *ini.File

	DataDir     string
	DataFile    string
	CatalogFile string
	SyncWrites  bool

	BufferFrames int
	BufferK      int

	LogLevel string
	LogFile  string
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:          ini.Empty(),
		DataDir:      "data",
		DataFile:     "petro.db",
		CatalogFile:  "catalog.mp",
		SyncWrites:   true,
		BufferFrames: 64,
		BufferK:      2,
		LogLevel:     "info",
	}
}

// Load reads an ini file over the defaults. A missing file keeps the defaults.
func (cfg *Cfg) Load(path string) (*Cfg, error) {
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	raw, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error parsing config %s: %v", path, err)
	}
	cfg.Raw = raw

	cfg.parseStorageCfg(raw.Section("storage"))
	cfg.parseBufferCfg(raw.Section("buffer"))
	cfg.parseLogsCfg(raw.Section("logs"))

	if cfg.BufferFrames <= 0 {
		return nil, fmt.Errorf("buffer.frames must be positive, got %d", cfg.BufferFrames)
	}
	if cfg.BufferK <= 0 {
		return nil, fmt.Errorf("buffer.k must be positive, got %d", cfg.BufferK)
	}

	return cfg, nil
}

func (cfg *Cfg) DataPath() string {
	return filepath.Join(cfg.DataDir, cfg.DataFile)
}

func (cfg *Cfg) CatalogPath() string {
	return filepath.Join(cfg.DataDir, cfg.CatalogFile)
}

func (cfg *Cfg) parseStorageCfg(section *ini.Section) {
	cfg.DataDir = section.Key("data_dir").MustString(cfg.DataDir)
	cfg.DataFile = section.Key("data_file").MustString(cfg.DataFile)
	cfg.CatalogFile = section.Key("catalog_file").MustString(cfg.CatalogFile)
	cfg.SyncWrites = section.Key("sync_writes").MustBool(cfg.SyncWrites)
}

func (cfg *Cfg) parseBufferCfg(section *ini.Section) {
	cfg.BufferFrames = section.Key("frames").MustInt(cfg.BufferFrames)
	cfg.BufferK = section.Key("k").MustInt(cfg.BufferK)
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) {
	cfg.LogLevel = section.Key("level").MustString(cfg.LogLevel)
	cfg.LogFile = section.Key("file").MustString(cfg.LogFile)
}
