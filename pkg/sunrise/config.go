package sunrise

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/robotalks/sunrise.go/pkg/display/ht16k33"
	"github.com/robotalks/sunrise.go/pkg/l0/comm"
	"github.com/robotalks/sunrise.go/pkg/l0/esp8266"
)

// WiFiConfig is the network joined by the modem.
type WiFiConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

// DisplayConfig configures the progress display.
type DisplayConfig struct {
	Enabled bool `yaml:"enabled"`
	// Bus is the I2C bus name, empty for the first available.
	Bus        string `yaml:"bus"`
	Address    int    `yaml:"address"`
	Brightness int    `yaml:"brightness"`
}

// StepConfig declares a script step in the config file. Payload is hex
// encoded.
type StepConfig struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
	Payload string `yaml:"payload"`
	Mode    string `yaml:"mode"`
}

// Config is the configuration of the system.
type Config struct {
	// Link is the URL of the modem stream, see link.Open.
	Link string `yaml:"link"`

	InboundSize  int           `yaml:"inbound-size"`
	OutboundSize int           `yaml:"outbound-size"`
	Timeout      time.Duration `yaml:"timeout"`
	EchoLimit    int           `yaml:"echo-limit"`
	ReplySize    int           `yaml:"reply-size"`
	AbortOnError bool          `yaml:"abort-on-error"`

	WiFi    WiFiConfig    `yaml:"wifi"`
	Display DisplayConfig `yaml:"display"`

	// MQTTURL enables telemetry when not empty,
	// e.g. mqtt://host:port/topic-prefix/
	MQTTURL string `yaml:"mqtt-url"`
	// Device names the reports, defaults to the machine ID.
	Device string `yaml:"device"`

	// Script replaces the default script when not empty.
	Script []StepConfig `yaml:"script"`
}

var (
	defaultConfig = Config{
		Link:         "sim://",
		InboundSize:  comm.DefaultInboundSize,
		OutboundSize: comm.DefaultOutboundSize,
		Timeout:      comm.DefaultTimeout,
		ReplySize:    DefaultReplySize,
		Display: DisplayConfig{
			Address:    int(ht16k33.DefaultAddress),
			Brightness: int(ht16k33.MaxBrightness),
		},
	}

	configFile string
)

func init() {
	if val := os.Getenv("SUNRISE_LINK"); val != "" {
		defaultConfig.Link = val
	}
	if val := os.Getenv("SUNRISE_WIFI_SSID"); val != "" {
		defaultConfig.WiFi.SSID = val
	}
	if val := os.Getenv("SUNRISE_WIFI_PASSWORD"); val != "" {
		defaultConfig.WiFi.Password = val
	}
	if val := os.Getenv("SUNRISE_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file.")
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Modem link URL: serial:///dev/ttyUSB0, ws://host/path or sim://.")
	flag.IntVar(&defaultConfig.InboundSize, "inbound-size", defaultConfig.InboundSize, "Inbound ring capacity.")
	flag.IntVar(&defaultConfig.OutboundSize, "outbound-size", defaultConfig.OutboundSize, "Outbound ring capacity.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Timeout of each send or read, 0 for none.")
	flag.IntVar(&defaultConfig.EchoLimit, "echo-limit", defaultConfig.EchoLimit, "Max bytes consumed while waiting for the echo, 0 for no limit.")
	flag.IntVar(&defaultConfig.ReplySize, "reply-size", defaultConfig.ReplySize, "Reply buffer size of each step.")
	flag.BoolVar(&defaultConfig.AbortOnError, "abort-on-error", defaultConfig.AbortOnError, "Stop the script at the first failed step.")
	flag.StringVar(&defaultConfig.WiFi.SSID, "wifi-ssid", defaultConfig.WiFi.SSID, "WiFi SSID to join.")
	flag.StringVar(&defaultConfig.WiFi.Password, "wifi-password", defaultConfig.WiFi.Password, "WiFi password.")
	flag.BoolVar(&defaultConfig.Display.Enabled, "display", defaultConfig.Display.Enabled, "Show progress on the HT16K33 display.")
	flag.StringVar(&defaultConfig.Display.Bus, "display-bus", defaultConfig.Display.Bus, "I2C bus of the display.")
	flag.IntVar(&defaultConfig.Display.Address, "display-addr", defaultConfig.Display.Address, "I2C address of the display.")
	flag.IntVar(&defaultConfig.Display.Brightness, "display-brightness", defaultConfig.Display.Brightness, "Display brightness 0-15.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL for telemetry.")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Device name in telemetry topics.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations. The file given
// by -config is loaded first, flags set on the command line take
// precedence over it.
func NewConfig() (*Config, error) {
	if configFile != "" {
		explicit := make(map[string]string)
		flag.Visit(func(f *flag.Flag) {
			explicit[f.Name] = f.Value.String()
		})
		if err := defaultConfig.LoadFile(configFile); err != nil {
			return nil, err
		}
		for name, val := range explicit {
			if err := flag.Set(name, val); err != nil {
				return nil, err
			}
		}
	}
	conf := defaultConfig
	return &conf, nil
}

// LoadFile loads the YAML file into the config. Unknown keys are errors.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	return c.Load(data)
}

// Load parses YAML into the config.
func (c *Config) Load(data []byte) error {
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Link == "" {
		return fmt.Errorf("link not specified")
	}
	if c.InboundSize < 2 || c.OutboundSize < 2 {
		return fmt.Errorf("ring sizes too small: %d/%d", c.InboundSize, c.OutboundSize)
	}
	if c.ReplySize <= 0 {
		return fmt.Errorf("invalid reply size %d", c.ReplySize)
	}
	if c.Timeout < 0 || c.EchoLimit < 0 {
		return fmt.Errorf("timeout and echo limit must not be negative")
	}
	if c.Display.Enabled {
		if c.Display.Address <= 0 || c.Display.Address > 0x7f {
			return fmt.Errorf("invalid display address %#x", c.Display.Address)
		}
		if c.Display.Brightness < 0 || c.Display.Brightness > int(ht16k33.MaxBrightness) {
			return fmt.Errorf("invalid display brightness %d", c.Display.Brightness)
		}
	}
	_, err := c.BuildScript()
	return err
}

// JoinCommand formats the network join command from the WiFi config.
func (c *Config) JoinCommand() string {
	return esp8266.JoinCommand(c.WiFi.SSID, c.WiFi.Password)
}

// BuildScript returns the configured script or the default one.
func (c *Config) BuildScript() (Script, error) {
	if len(c.Script) == 0 {
		return DefaultScript(c.JoinCommand()), nil
	}
	script := make(Script, 0, len(c.Script))
	for n, sc := range c.Script {
		step := Step{Name: sc.Name, Command: sc.Command, Mode: esp8266.ModeOf(sc.Command)}
		if sc.Mode != "" {
			mode, ok := comm.ModeByName(sc.Mode)
			if !ok {
				return nil, fmt.Errorf("step %d: unknown mode %q", n+1, sc.Mode)
			}
			step.Mode = mode
		}
		if sc.Payload != "" {
			payload, err := hex.DecodeString(sc.Payload)
			if err != nil {
				return nil, fmt.Errorf("step %d: invalid payload: %w", n+1, err)
			}
			step.Payload = payload
		}
		if step.Command == "" && len(step.Payload) == 0 {
			return nil, fmt.Errorf("step %d: command or payload required", n+1)
		}
		if step.Command != "" && len(step.Payload) > 0 {
			return nil, fmt.Errorf("step %d: command and payload are exclusive", n+1)
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("step%d", n+1)
		}
		script = append(script, step)
	}
	return script, nil
}
