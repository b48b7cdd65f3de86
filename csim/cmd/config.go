package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/csim/cache"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// runConfig holds everything a run needs. Values come from a YAML file, then
// the environment, then the command line, each overriding the previous one.
type runConfig struct {
	SetIndexBits    uint32 `yaml:"set_index_bits"`
	Associativity   uint32 `yaml:"associativity"`
	BlockOffsetBits uint32 `yaml:"block_offset_bits"`
	TraceFile       string `yaml:"trace_file"`
	Verbose         bool   `yaml:"verbose"`
	JSON            bool   `yaml:"json"`
	RecordPath      string `yaml:"record"`
	CSVPath         string `yaml:"csv"`
	ResultsFile     string `yaml:"results_file"`
	Monitor         bool   `yaml:"monitor"`
	MonitorPort     int    `yaml:"monitor_port"`
	OpenBrowser     bool   `yaml:"open_browser"`
}

func (c runConfig) cacheConfig() cache.Config {
	return cache.Config{
		SetIndexBits:    c.SetIndexBits,
		Associativity:   c.Associativity,
		BlockOffsetBits: c.BlockOffsetBits,
	}
}

var errNoTraceFile = errors.New("no trace file given, use -t")

func resolveConfig(cmd *cobra.Command) (runConfig, error) {
	cfg := runConfig{}
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	if configPath != "" {
		if err := loadConfigFile(configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	envFile, _ := flags.GetString("env-file")
	if err := loadEnvFile(envFile); err != nil {
		return cfg, err
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	applyFlags(cmd, &cfg)

	if cfg.TraceFile == "" {
		return cfg, errNoTraceFile
	}

	return cfg, nil
}

func loadConfigFile(path string, cfg *runConfig) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return nil
}

// loadEnvFile adds the variables of a .env file to the environment. Variables
// that are already set keep their value. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *runConfig) error {
	uintVars := []struct {
		name string
		dst  *uint32
	}{
		{"CSIM_S", &cfg.SetIndexBits},
		{"CSIM_E", &cfg.Associativity},
		{"CSIM_B", &cfg.BlockOffsetBits},
	}

	for _, v := range uintVars {
		value, ok := os.LookupEnv(v.name)
		if !ok || value == "" {
			continue
		}

		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("environment variable %s: %w", v.name, err)
		}

		*v.dst = uint32(n)
	}

	if value, ok := os.LookupEnv("CSIM_TRACE"); ok && value != "" {
		cfg.TraceFile = value
	}

	if value, ok := os.LookupEnv("CSIM_RECORD"); ok && value != "" {
		cfg.RecordPath = value
	}

	return nil
}

func applyFlags(cmd *cobra.Command, cfg *runConfig) {
	flags := cmd.Flags()

	if flags.Changed("set-index-bits") {
		cfg.SetIndexBits, _ = flags.GetUint32("set-index-bits")
	}

	if flags.Changed("associativity") {
		cfg.Associativity, _ = flags.GetUint32("associativity")
	}

	if flags.Changed("block-bits") {
		cfg.BlockOffsetBits, _ = flags.GetUint32("block-bits")
	}

	if flags.Changed("trace") {
		cfg.TraceFile, _ = flags.GetString("trace")
	}

	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}

	if flags.Changed("json") {
		cfg.JSON, _ = flags.GetBool("json")
	}

	if flags.Changed("record") {
		cfg.RecordPath, _ = flags.GetString("record")
	}

	if flags.Changed("csv") {
		cfg.CSVPath, _ = flags.GetString("csv")
	}

	if flags.Changed("results-file") {
		cfg.ResultsFile, _ = flags.GetString("results-file")
	}

	if flags.Changed("monitor") {
		cfg.Monitor, _ = flags.GetBool("monitor")
	}

	if flags.Changed("monitor-port") {
		cfg.MonitorPort, _ = flags.GetInt("monitor-port")
	}

	if flags.Changed("open-browser") {
		cfg.OpenBrowser, _ = flags.GetBool("open-browser")
	}
}
