//go:build !linux

package evdev

import (
	"context"
	"errors"

	"github.com/rbright/presto/internal/event"
)

func (s *Source) start(context.Context, []Device) (<-chan event.Event, error) {
	return nil, errors.New("evdev input requires linux")
}
