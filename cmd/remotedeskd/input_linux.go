//go:build linux

package main

import "github.com/remotedeskd/remotedeskd/internal/desktop"

func newInputSink(bounds func() (int, int)) desktop.InputSink {
	return desktop.NewXdotoolSink(bounds)
}
