package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
)

type SourceType string

const (
	SourceWebcam SourceType = "Web-Camera"
	SourceLocal  SourceType = "Local"

	DefaultConfigPath string = "config.json"
	DefaultBackendURL string = "http://localhost:5000"
)

var SourcesList = [...]string{
	string(SourceWebcam),
	string(SourceLocal),
}

// Env overrides, applied after the file is read.
const (
	EnvBackendURL   = "POSE_BACKEND_URL"
	EnvCameraDevice = "POSE_CAMERA_DEVICE"
	EnvLogLevel     = "POSE_LOG_LEVEL"
)

// Keys accepted by Override.
const (
	KeyBackendURL = "backend_url"
	KeyDevice     = "device_id"
	KeyLogLevel   = "log_level"
	KeyLogDir     = "log_dir"
)

type LocalConfig struct {
	Path string `json:"path"`
}

type WebcamConfig struct {
	DeviceID string `json:"device_id"`
}

type LoggingConfig struct {
	Directory string `json:"directory"`
	Level     string `json:"level"`
}

// override is a run-only value together with the file value it shadows.
type override struct {
	file string
	run  string
}

type Config struct {
	mu sync.RWMutex

	// path is where the config was loaded from and where it is saved.
	path      string
	overrides map[string]override

	BackendURL   string     `json:"backend_url"`
	ActiveSource SourceType `json:"active_source"`
	TargetFPS    uint       `json:"target_fps"`

	// Advisory; the device may negotiate something else.
	PreferredWidth  int `json:"preferred_width"`
	PreferredHeight int `json:"preferred_height"`

	JPEGQuality           int `json:"jpeg_quality"`
	AcquireTimeoutSeconds int `json:"acquire_timeout_seconds"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	ExportDir string `json:"export_dir"`

	Local   LocalConfig   `json:"local"`
	Webcam  WebcamConfig  `json:"webcam"`
	Logging LoggingConfig `json:"logging"`
}

func (c *Config) GetBackendURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.BackendURL
}

func (c *Config) SetBackendURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BackendURL = url
}

func (c *Config) GetSource() SourceType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ActiveSource
}

func (c *Config) SetSource(s SourceType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ActiveSource = s
}

func (c *Config) GetDevice() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Webcam.DeviceID
}

func (c *Config) SetDevice(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Webcam.DeviceID = id
}

func (c *Config) GetLocalPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Local.Path
}

func (c *Config) SetLocalPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Local.Path = path
}

func (c *Config) GetFPS() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.TargetFPS
}

func (c *Config) SetFPS(fps uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TargetFPS = fps
}

func (c *Config) GetWidth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PreferredWidth
}

func (c *Config) SetWidth(width int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PreferredWidth = width
}

func (c *Config) GetHeight() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PreferredHeight
}

func (c *Config) SetHeight(height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PreferredHeight = height
}

func (c *Config) GetJPEGQuality() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.JPEGQuality
}

func (c *Config) SetJPEGQuality(q int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.JPEGQuality = q
}

func (c *Config) AcquireTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.AcquireTimeoutSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	restore := c.unapplyOverrides()
	defer restore()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(c)
}

// Path is the file the config was loaded from, or DefaultConfigPath.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		return DefaultConfigPath
	}
	return c.path
}

// SaveToSource writes the config back to the file it was loaded from.
func (c *Config) SaveToSource() error {
	return c.Save(c.Path())
}

// ApplyEnv overrides file values with POSE_* environment variables for this
// run only.
func (c *Config) ApplyEnv() {
	for env, key := range map[string]string{
		EnvBackendURL:   KeyBackendURL,
		EnvCameraDevice: KeyDevice,
		EnvLogLevel:     KeyLogLevel,
	} {
		if v := os.Getenv(env); v != "" {
			c.Override(key, v)
		}
	}
}

// Override sets a value for this run only. Save keeps writing the file value
// unless the field is changed again after the override.
func (c *Config) Override(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	field := c.field(key)
	if field == nil {
		return
	}

	if c.overrides == nil {
		c.overrides = make(map[string]override)
	}

	file := *field
	if prev, ok := c.overrides[key]; ok && prev.run == file {
		file = prev.file
	}

	c.overrides[key] = override{file: file, run: value}
	*field = value
}

func (c *Config) field(key string) *string {
	switch key {
	case KeyBackendURL:
		return &c.BackendURL
	case KeyDevice:
		return &c.Webcam.DeviceID
	case KeyLogLevel:
		return &c.Logging.Level
	case KeyLogDir:
		return &c.Logging.Directory
	default:
		return nil
	}
}

// unapplyOverrides puts file values back into fields still holding their
// run value and returns a func that undoes it. Callers hold mu.
func (c *Config) unapplyOverrides() func() {
	var restored []func()

	for key, o := range c.overrides {
		field := c.field(key)
		if *field != o.run {
			continue
		}

		*field = o.file
		restored = append(restored, func() { *field = o.run })
	}

	return func() {
		for _, r := range restored {
			r()
		}
	}
}

// LoadConfigFile decodes path over the defaults. A missing file is not an
// error; a malformed one returns the defaults together with the error.
func LoadConfigFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	cfg.path = path

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		def := NewDefaultConfig()
		def.path = path
		return def, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.fillZeroes()

	return cfg, nil
}

func (c *Config) fillZeroes() {
	def := NewDefaultConfig()

	if c.BackendURL == "" {
		c.BackendURL = def.BackendURL
	}
	if c.ActiveSource == "" {
		c.ActiveSource = def.ActiveSource
	}
	if c.TargetFPS == 0 {
		c.TargetFPS = def.TargetFPS
	}
	if c.PreferredWidth <= 0 || c.PreferredHeight <= 0 {
		c.PreferredWidth, c.PreferredHeight = def.PreferredWidth, def.PreferredHeight
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		c.JPEGQuality = def.JPEGQuality
	}
	if c.AcquireTimeoutSeconds <= 0 {
		c.AcquireTimeoutSeconds = def.AcquireTimeoutSeconds
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = def.RequestTimeoutSeconds
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = def.Logging.Directory
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

func defaultDevice() string {
	switch runtime.GOOS {
	case "windows":
		return ""
	case "darwin":
		return "0"
	default:
		return "/dev/video0"
	}
}

func NewDefaultConfig() *Config {
	return &Config{
		BackendURL:            DefaultBackendURL,
		ActiveSource:          SourceWebcam,
		TargetFPS:             24,
		PreferredWidth:        640,
		PreferredHeight:       480,
		JPEGQuality:           80,
		AcquireTimeoutSeconds: 10,
		RequestTimeoutSeconds: 30,
		ExportDir:             ".",
		Webcam:                WebcamConfig{DeviceID: defaultDevice()},
		Local:                 LocalConfig{Path: ""},
		Logging:               LoggingConfig{Directory: "logs", Level: "info"},
	}
}
