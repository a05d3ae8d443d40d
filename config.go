package main

import (
	"net/http"
	"os"
	"time"

	"departureboard/log"

	"github.com/go-playground/validator/v10"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/pflag"
)

var validate = validator.New()

// Config holds every setting the commands share.
type Config struct {
	Port            int           `validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `validate:"min=1s"`
	RefreshInterval time.Duration `validate:"min=1s"`
	FetchTimeout    time.Duration `validate:"min=1s"`
	SnapshotTTL     time.Duration `validate:"min=1s"`
	StaticDir       string
	Open            bool

	Model       string `validate:"required"`
	APIKey      string `validate:"required_without_all=SiriJSONURL SiriXMLURL GtfsRtURL"`
	SiriJSONURL string `validate:"omitempty,url"`
	SiriXMLURL  string `validate:"omitempty,url"`
	GtfsRtURL   string `validate:"omitempty,url"`

	Station stationFlag
}

func defaultConfig() *Config {
	return &Config{
		Port:            8080,
		ShutdownTimeout: 10 * time.Second,
		RefreshInterval: 120 * time.Second,
		FetchTimeout:    90 * time.Second,
		SnapshotTTL:     10 * time.Minute,
		StaticDir:       "./static",
		Model:           "gemini-2.5-flash",
		Station:         stationFlag{Station: DefaultStation()},
	}
}

// bindSourceFlags registers the flags every command that fetches needs.
func (c *Config) bindSourceFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Model, "model", c.Model, "Generative model used when no feed URL is given")
	fs.StringVar(&c.SiriJSONURL, "siri_json_url", "", "SIRI StopMonitoring JSON URL template ({station} is replaced)")
	fs.StringVar(&c.SiriXMLURL, "siri_xml_url", "", "SIRI StopMonitoring XML URL template ({station} is replaced)")
	fs.StringVar(&c.GtfsRtURL, "gtfsrt_url", "", "GTFS-RT trip updates URL (protobuf)")
	fs.DurationVar(&c.FetchTimeout, "fetch_timeout", c.FetchTimeout, "Upper bound for one fetch cycle")
	fs.DurationVar(&c.SnapshotTTL, "snapshot_ttl", c.SnapshotTTL, "How long the last good board per station is kept")
}

// bindServeFlags registers the HTTP server flags.
func (c *Config) bindServeFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.Port, "port", c.Port, "HTTP port")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown_timeout", c.ShutdownTimeout, "HTTP server shutdown timeout")
	fs.DurationVar(&c.RefreshInterval, "refresh_interval", c.RefreshInterval, "Board refresh interval")
	fs.StringVar(&c.StaticDir, "static_dir", c.StaticDir, "Directory served at /")
	fs.BoolVar(&c.Open, "open", false, "Open the board in a browser once the server is up")
	fs.Var(&c.Station, "station", "Station a new board starts on")
}

// resolve fills values that come from the environment and validates the result.
func (c *Config) resolve() error {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("API_KEY")
	}

	feeds := 0
	for _, u := range []string{c.SiriJSONURL, c.SiriXMLURL, c.GtfsRtURL} {
		if u != "" {
			feeds++
		}
	}
	if feeds > 1 {
		return failure.New(InvalidConfig,
			failure.Message("provide at most one of --siri_json_url, --siri_xml_url, --gtfsrt_url"),
		)
	}

	if err := validate.Struct(c); err != nil {
		return failure.Translate(err, InvalidConfig,
			failure.Message("invalid configuration: "+err.Error()),
		)
	}
	return nil
}

func (c *Config) httpClient() *http.Client {
	return log.HTTPClient(c.FetchTimeout)
}
