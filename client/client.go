// Package client exposes the operations of an API description as calls on a
// remote endpoint.
//
//	people := api.New("PersonAPI").
//		Method("FindAll", api.Returns(api.TypeOf[[]Person]()))
//
//	c, err := client.New(people, "http://localhost:8080/api")
//	all, err := client.Call[[]Person](ctx, c, "FindAll")
package client

import (
	"context"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/yingshulu/apiclient/api"
	"github.com/yingshulu/apiclient/binding"
	"github.com/yingshulu/apiclient/driver"
	"github.com/yingshulu/apiclient/mapping"
)

// Driver performs the remote calls for bound operations.
type Driver interface {
	binding.Registrar
	Call(ctx context.Context, name string, args []interface{}) (interface{}, error)
	Close() error
}

// New binds every operation of a and installs the bindings into the driver
// for endpoint. Nothing is dialled until the first call.
func New(a *api.API, endpoint string, options ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	config := defaultConfig()
	config.Apply(options)
	if !config.actionBaseSet {
		config.ActionBase = strings.TrimSuffix(u.Path, "/")
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}

	lookup := config.TypeLookup
	if lookup == nil {
		lookup = mapping.NewRegistry(config.Namespace())
	}
	builder := binding.NewBuilder(config.Namespace(), config.ActionBase, lookup,
		binding.WithNameTransform(a.NameTransform()))
	table, err := builder.Build(a.Operations())
	if err != nil {
		return nil, err
	}

	d := config.Driver
	if d == nil {
		if d, err = driver.New(endpoint, config.driverOptions()...); err != nil {
			return nil, err
		}
	}
	if err = binding.Install(table, d); err != nil {
		if config.Driver == nil {
			_ = d.Close()
		}
		return nil, err
	}

	c := &Client{
		api:    a,
		config: config,
		dispatcher: dispatcher{
			table:  table,
			driver: d,
		},
	}
	c.log = log.WithFields(log.Fields{
		"Name":      "Client",
		"API":       a.Name(),
		"Namespace": config.Namespace(),
	})
	c.log.WithField("Operations", table.Len()).Debug("operations bound")
	return c, nil
}

type Client struct {
	dispatcher
	api    *api.API
	config *Config
	log    *log.Entry
}

func (c *Client) API() *api.API {
	return c.api
}

func (c *Client) Config() *Config {
	return c.config
}

// Bindings returns the bound operations in declaration order.
func (c *Client) Bindings() []*binding.Binding {
	return c.table.Bindings()
}

func (c *Client) Close() error {
	c.log.Debug("close")
	return c.driver.Close()
}
