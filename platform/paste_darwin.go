//go:build darwin

package platform

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// DarwinPaster implements the Paster interface for macOS
type DarwinPaster struct{}

// NewPaster creates a new macOS paster instance
func NewPaster() Paster {
	return &DarwinPaster{}
}

// Paste posts a Command+V press and release
func (p *DarwinPaster) Paste() error {
	if err := robotgo.KeyTap("v", "cmd"); err != nil {
		return fmt.Errorf("failed to send Command+V: %w", err)
	}
	return nil
}
