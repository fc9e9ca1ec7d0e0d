package people

import (
	"context"
	"time"
)

type Person struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

type PersonAPI interface {
	FindAll(ctx context.Context) ([]Person, error)
	FindByName(ctx context.Context, name string) (*Person, error)
	FindSince(ctx context.Context, since time.Time, limit int) ([]Person, error)
	Rename(ctx context.Context, from, to string) error
	Remove(context.Context, string) error
}
