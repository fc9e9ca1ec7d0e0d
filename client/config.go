package client

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yingshulu/apiclient/codec"
	"github.com/yingshulu/apiclient/driver"
	"github.com/yingshulu/apiclient/mapping"
)

const (
	DefaultServiceName = "APIService"
	namespacePrefix    = "urn:"
)

const (
	envServiceName   = "APICLIENT_SERVICE_NAME"
	envActionBase    = "APICLIENT_ACTION_BASE"
	envSerialization = "APICLIENT_SERIALIZATION"
	envTimeout       = "APICLIENT_TIMEOUT"
)

type Option = func(*Config)

// WithServiceName overrides the root of the binding namespace. Use it when
// the remote service publishes a custom service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithActionBase overrides the action identifier prefix, which defaults to
// the endpoint path. An empty base is kept as given.
func WithActionBase(base string) Option {
	return func(c *Config) {
		c.ActionBase = base
		c.actionBaseSet = true
	}
}

func WithSerialization(name string) Option {
	return func(c *Config) {
		c.Serialization = name
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

func WithHostID(id string) Option {
	return func(c *Config) {
		c.HostID = id
	}
}

func WithCredentialProvider(f driver.CredentialProvider) Option {
	return func(c *Config) {
		c.CredentialProvider = f
	}
}

func WithTypeLookup(l mapping.Lookup) Option {
	return func(c *Config) {
		c.TypeLookup = l
	}
}

// WithDriver replaces the transport driver built from the endpoint.
func WithDriver(d Driver) Option {
	return func(c *Config) {
		c.Driver = d
	}
}

// WithDriverOptions passes extra options to the default driver.
func WithDriverOptions(options ...driver.Option) Option {
	return func(c *Config) {
		c.DriverOptions = append(c.DriverOptions, options...)
	}
}

type Config struct {
	ServiceName string
	// ActionBase is the endpoint path unless set by WithActionBase.
	ActionBase         string
	Serialization      string
	Timeout            time.Duration
	HostID             string
	CredentialProvider driver.CredentialProvider
	TypeLookup         mapping.Lookup
	Driver             Driver
	DriverOptions      []driver.Option

	actionBaseSet bool
}

func defaultConfig() *Config {
	return &Config{
		ServiceName:   DefaultServiceName,
		Serialization: "json",
		Timeout:       30 * time.Second,
	}
}

func (c *Config) Apply(options []Option) {
	for _, f := range options {
		f(c)
	}
}

// Namespace qualifies every bound operation name.
func (c *Config) Namespace() string {
	return namespacePrefix + c.ServiceName
}

func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("client: empty service name")
	}
	if strings.ContainsAny(c.ServiceName, " \t\r\n") {
		return fmt.Errorf("client: service name %q contains whitespace", c.ServiceName)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("client: negative timeout %v", c.Timeout)
	}
	if c.Driver == nil {
		t, err := codec.ParseType(c.Serialization)
		if err != nil {
			return err
		}
		if !t.Legal() {
			return fmt.Errorf("client: serialization %s not registered", c.Serialization)
		}
	}
	return nil
}

func (c *Config) driverOptions() []driver.Option {
	options := []driver.Option{
		driver.WithSerialization(c.Serialization),
		driver.WithTimeout(c.Timeout),
		driver.WithNamespace(c.Namespace()),
	}
	if c.HostID != "" {
		options = append(options, driver.WithHostID(c.HostID))
	}
	if c.CredentialProvider != nil {
		options = append(options, driver.WithCredentialProvider(c.CredentialProvider))
	}
	return append(options, c.DriverOptions...)
}

// LoadEnv reads APICLIENT_* settings from the given dotenv files, with the
// process environment taking precedence, and returns them as options.
func LoadEnv(files ...string) ([]Option, error) {
	values := map[string]string{}
	if len(files) > 0 {
		read, err := godotenv.Read(files...)
		if err != nil {
			return nil, err
		}
		values = read
	}
	for _, key := range []string{envServiceName, envActionBase, envSerialization, envTimeout} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	var options []Option
	if v := values[envServiceName]; v != "" {
		options = append(options, WithServiceName(v))
	}
	if v, ok := values[envActionBase]; ok {
		options = append(options, WithActionBase(v))
	}
	if v := values[envSerialization]; v != "" {
		options = append(options, WithSerialization(v))
	}
	if v := values[envTimeout]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("client: %s: %w", envTimeout, err)
		}
		options = append(options, WithTimeout(d))
	}
	return options, nil
}
