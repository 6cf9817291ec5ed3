// Package system exposes the machine-level actions and facts a greeter offers:
// rebooting, powering off and describing the host.
package system

import (
	"errors"
	"fmt"
	"os/exec"

	"tgreet/modules/platform/logger"
)

// PowerAction identifies a power command
type PowerAction string

const (
	ActionReboot   PowerAction = "reboot"
	ActionPowerOff PowerAction = "poweroff"
)

// ErrNoCommand is returned when an action has no command configured
var ErrNoCommand = errors.New("no command configured")

// Spawner starts a command without waiting for it
type Spawner func(name string, args ...string) error

// Power runs the configured power commands
type Power struct {
	commands map[PowerAction][]string
	spawn    Spawner
}

// NewPower creates a power controller. A nil spawn starts real processes.
func NewPower(reboot, powerOff []string, spawn Spawner) *Power {
	if spawn == nil {
		spawn = SpawnDetached
	}
	return &Power{
		commands: map[PowerAction][]string{
			ActionReboot:   reboot,
			ActionPowerOff: powerOff,
		},
		spawn: spawn,
	}
}

// Reboot spawns the reboot command
func (p *Power) Reboot() error {
	return p.Run(ActionReboot)
}

// PowerOff spawns the poweroff command
func (p *Power) PowerOff() error {
	return p.Run(ActionPowerOff)
}

// Run spawns the command configured for action
func (p *Power) Run(action PowerAction) error {
	cmd := p.commands[action]
	if len(cmd) == 0 {
		return fmt.Errorf("%w for %s", ErrNoCommand, action)
	}

	logger.Info("power: %s (%v)", action, cmd)
	if err := p.spawn(cmd[0], cmd[1:]...); err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	return nil
}

// SpawnDetached starts a process and reaps it in the background
func SpawnDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("power: %s exited: %v", name, err)
		}
	}()
	return nil
}
